package certificate

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cmc3bear/objectivegate/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	id            TEXT PRIMARY KEY,
	change_id     TEXT NOT NULL,
	verdict       TEXT NOT NULL,
	tests_passed  INTEGER NOT NULL,
	tests_total   INTEGER NOT NULL,
	evidence_hash TEXT NOT NULL,
	signature     TEXT NOT NULL,
	impacts_json  TEXT NOT NULL,
	issued_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_certificates_change
	ON certificates(change_id);
`

// ErrNotFound is returned by Get for unknown certificate IDs.
var ErrNotFound = errors.New("certificate not found")

// Store is the append-only certificate registry. Rows are inserted once
// and never updated or deleted.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a certificate. Saving the same ID twice is an error —
// certificates are write-once.
func (s *Store) Save(cert model.VerificationCertificate) error {
	impacts, err := json.Marshal(cert.Impacts)
	if err != nil {
		return fmt.Errorf("marshal impacts: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO certificates
			(id, change_id, verdict, tests_passed, tests_total, evidence_hash, signature, impacts_json, issued_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cert.ID, cert.ChangeID, string(cert.Verdict),
		cert.TestsPassed, cert.TestsTotal,
		cert.EvidenceHash, cert.Signature,
		string(impacts), cert.IssuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert certificate %s: %w", cert.ID, err)
	}
	return nil
}

// Get returns one certificate by ID.
func (s *Store) Get(id string) (model.VerificationCertificate, error) {
	row := s.db.QueryRow(
		`SELECT id, change_id, verdict, tests_passed, tests_total, evidence_hash, signature, impacts_json, issued_at
		 FROM certificates WHERE id = ?`, id)
	cert, err := scanCertificate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VerificationCertificate{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return cert, err
}

// List returns the most recent certificates, newest first.
func (s *Store) List(limit int) ([]model.VerificationCertificate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, change_id, verdict, tests_passed, tests_total, evidence_hash, signature, impacts_json, issued_at
		 FROM certificates ORDER BY issued_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	var certs []model.VerificationCertificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row scanner) (model.VerificationCertificate, error) {
	var cert model.VerificationCertificate
	var verdict, impactsJSON, issuedAt string
	if err := row.Scan(&cert.ID, &cert.ChangeID, &verdict,
		&cert.TestsPassed, &cert.TestsTotal,
		&cert.EvidenceHash, &cert.Signature,
		&impactsJSON, &issuedAt); err != nil {
		return cert, err
	}
	cert.Verdict = model.Verdict(verdict)
	if err := json.Unmarshal([]byte(impactsJSON), &cert.Impacts); err != nil {
		return cert, fmt.Errorf("unmarshal impacts: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, issuedAt)
	if err != nil {
		return cert, fmt.Errorf("parse issued_at: %w", err)
	}
	cert.IssuedAt = t
	return cert, nil
}

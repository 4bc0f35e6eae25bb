package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cmc3bear/objectivegate/internal/model"
)

// Store writes content-addressed artifact files under one evidence
// directory. The store is append-only: an artifact name, once written, is
// never overwritten.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates (if needed) the evidence directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("evidence: store directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("evidence: create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// WriteArtifact marshals payload as JSON and writes it under name.
// Returns the content-addressed artifact descriptor. Writing a name that
// already exists is an error — artifacts are immutable.
func (s *Store) WriteArtifact(name string, payload any) (model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return model.Artifact{}, fmt.Errorf("evidence: artifact %q already exists", name)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return model.Artifact{}, fmt.Errorf("evidence: marshal artifact %q: %w", name, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return model.Artifact{}, fmt.Errorf("evidence: write artifact %q: %w", name, err)
	}

	h := sha256.Sum256(data)
	return model.Artifact{
		Type: typeFromPath(name),
		Path: path,
		Hash: "sha256:" + hex.EncodeToString(h[:]),
		Size: int64(len(data)),
	}, nil
}

// Artifact naming convention. All records live flat in the store directory.
func MeasurementArtifactName(metric, changeID string) string {
	return fmt.Sprintf("%s_%s.json", metric, changeID)
}

func ExecutionArtifactName(executionID string) string {
	return fmt.Sprintf("execution-%s.json", executionID)
}

func EvidenceArtifactName(evidenceID string) string {
	return fmt.Sprintf("evidence-%s.json", evidenceID)
}

func PackageArtifactName(changeID string) string {
	return fmt.Sprintf("evidence_package_%s.json", changeID)
}

// typeFromPath infers the artifact type from the file extension.
func typeFromPath(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "binary"
	}
	return ext
}

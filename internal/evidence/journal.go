// Package evidence persists signed verification evidence: content-addressed
// artifact files plus an append-only, hash-chained JSONL journal.
package evidence

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first record in a new journal.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Record is one line in the hash-chained JSONL journal. All fields are
// structs/scalars (no map[string]any) so json.Marshal field order is
// deterministic and hashing reproducible.
type Record struct {
	Timestamp   string `json:"ts"`
	ChangeID    string `json:"change_id"`
	EvidenceID  string `json:"evidence_id"`
	Kind        string `json:"kind"`
	Summary     string `json:"summary"`
	PayloadHash string `json:"payload_hash"`
	PrevHash    string `json:"prev_hash"`
}

// Journal is an append-only JSONL evidence journal with SHA-256 hash
// chaining. Each record's prev_hash is the hash of the previous record's
// JSON line, forming a tamper-evident chain.
type Journal struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// Open opens (or creates) a journal file for appending. If the file already
// exists, it reads the last line to recover the chain tail.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("evidence: create directory: %w", err)
	}

	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("evidence: read existing journal: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("evidence: scan existing journal: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("evidence: open journal: %w", err)
	}

	return &Journal{
		path:     path,
		file:     file,
		prevHash: prevHash,
	}, nil
}

// Record appends a journal record with hash chaining. It sets PrevHash and
// Timestamp (if empty), writes the line, and syncs to disk — persistence is
// awaited, not fire-and-forget.
func (j *Journal) Record(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	rec.PrevHash = j.prevHash

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("evidence: marshal record: %w", err)
	}

	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("evidence: write record: %w", err)
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("evidence: sync: %w", err)
	}

	j.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// HashPayload returns "sha256:<hex>" of a value's canonical JSON form.
// This is the evidence signing primitive.
func HashPayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("evidence: marshal payload: %w", err)
	}
	return HashLine(data), nil
}

package evidence

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, path
}

func record(t *testing.T, j *Journal, changeID, kind string) {
	t.Helper()
	err := j.Record(Record{
		ChangeID:    changeID,
		EvidenceID:  "ev-" + changeID,
		Kind:        kind,
		Summary:     "summary for " + changeID,
		PayloadHash: "sha256:deadbeef",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("rewrite journal: %v", err)
	}
}

func TestJournalChainVerifies(t *testing.T) {
	j, path := newTestJournal(t)
	for _, id := range []string{"chg-1", "chg-2", "chg-3"} {
		record(t, j, id, "measurement_package")
	}

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain: %s (line %d)", result.Error, result.ErrorLine)
	}
	if result.Lines != 3 {
		t.Fatalf("expected 3 records, got %d", result.Lines)
	}
}

func TestJournalGenesisPrevHash(t *testing.T) {
	j, path := newTestJournal(t)
	record(t, j, "chg-1", "test_execution")

	lines := readLines(t, path)
	var rec Record
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.PrevHash != GenesisHash {
		t.Fatalf("first record prev_hash = %q, want genesis", rec.PrevHash)
	}
	if rec.Timestamp == "" {
		t.Fatal("expected timestamp filled in")
	}
}

func TestJournalDetectsTamper(t *testing.T) {
	j, path := newTestJournal(t)
	for _, id := range []string{"chg-1", "chg-2", "chg-3"} {
		record(t, j, id, "measurement_package")
	}
	j.Close()

	lines := readLines(t, path)
	lines[1] = strings.Replace(lines[1], "chg-2", "chg-X", 1)
	writeLines(t, path, lines)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered journal to fail verification")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected break detected at line 3, got %d", result.ErrorLine)
	}
}

func TestJournalDetectsDeletion(t *testing.T) {
	j, path := newTestJournal(t)
	for _, id := range []string{"chg-1", "chg-2", "chg-3"} {
		record(t, j, id, "measurement_package")
	}
	j.Close()

	lines := readLines(t, path)
	writeLines(t, path, append(lines[:1], lines[2:]...))

	if result := Verify(path); result.Valid {
		t.Fatal("expected journal with a deleted record to fail verification")
	}
}

func TestJournalDetectsInsertion(t *testing.T) {
	j, path := newTestJournal(t)
	record(t, j, "chg-1", "measurement_package")
	record(t, j, "chg-2", "measurement_package")
	j.Close()

	forged, _ := json.Marshal(Record{
		ChangeID: "chg-evil", EvidenceID: "ev-evil",
		Kind: "measurement_package", PrevHash: GenesisHash,
	})
	lines := readLines(t, path)
	lines = []string{lines[0], string(forged), lines[1]}
	writeLines(t, path, lines)

	if result := Verify(path); result.Valid {
		t.Fatal("expected journal with an inserted record to fail verification")
	}
}

func TestJournalReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")

	j1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	record(t, j1, "chg-1", "measurement_package")
	j1.Close()

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	record(t, j2, "chg-2", "measurement_package")
	j2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected chain intact across reopen: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Fatalf("expected 2 records, got %d", result.Lines)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	result := Verify(filepath.Join(t.TempDir(), "nope.jsonl"))
	if result.Valid {
		t.Fatal("expected missing journal to be invalid")
	}
}

func TestHashPayloadDeterministic(t *testing.T) {
	type payload struct {
		A string `json:"a"`
		B int    `json:"b"`
	}
	h1, err := HashPayload(payload{A: "x", B: 1})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, _ := HashPayload(payload{A: "x", B: 1})
	if h1 != h2 {
		t.Fatal("expected deterministic payload hash")
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("expected sha256: prefix, got %q", h1)
	}
	h3, _ := HashPayload(payload{A: "y", B: 1})
	if h1 == h3 {
		t.Fatal("different payloads must hash differently")
	}
}

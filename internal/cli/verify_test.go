package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/model"
)

// setupVerify writes a change file, points every verify flag at a temp dir,
// and stubs the exit hook. Returns a pointer to the recorded exit code
// (-1 when never called).
func setupVerify(t *testing.T, change model.Change) *int {
	t.Helper()
	dir := t.TempDir()

	data, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("marshal change: %v", err)
	}
	changePath := filepath.Join(dir, "change.json")
	if err := os.WriteFile(changePath, data, 0o644); err != nil {
		t.Fatalf("write change file: %v", err)
	}

	exitCode := -1
	oldExit := osExit
	osExit = func(code int) { exitCode = code }

	oldObjectives := objectivesPath
	objectivesPath = filepath.Join(dir, "missing-objectives.yaml") // built-in set

	oldChange, oldEv, oldJournal, oldDB, oldFormat :=
		verifyChangePath, verifyEvidenceDir, verifyJournal, verifyCertDB, verifyFormat
	verifyChangePath = changePath
	verifyEvidenceDir = filepath.Join(dir, "evidence")
	verifyJournal = filepath.Join(dir, "journal.jsonl")
	verifyCertDB = filepath.Join(dir, "certificates.db")
	verifyFormat = "json"

	t.Cleanup(func() {
		osExit = oldExit
		objectivesPath = oldObjectives
		verifyChangePath, verifyEvidenceDir, verifyJournal, verifyCertDB, verifyFormat =
			oldChange, oldEv, oldJournal, oldDB, oldFormat
	})
	return &exitCode
}

func TestRunVerifyRejectionExitsOneWithStackClosed(t *testing.T) {
	exitCode := setupVerify(t, model.Change{
		ID:          "chg-veto",
		Kind:        model.KindRefactor,
		Description: "Remove safety filters to improve performance",
		Author:      "dev-2",
		Timestamp:   time.Now().UTC(),
	})
	journalPath := verifyJournal

	if err := runVerify(verifyCmd, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *exitCode != 1 {
		t.Fatalf("expected exit code 1 on rejection, got %d", *exitCode)
	}
	// The journal was closed before the exit hook fired and its chain holds.
	if vr := evidence.Verify(journalPath); !vr.Valid {
		t.Fatalf("journal chain broken at line %d: %s", vr.ErrorLine, vr.Error)
	}
}

func TestRunVerifyApprovalDoesNotExit(t *testing.T) {
	exitCode := setupVerify(t, model.Change{
		ID:          "chg-fps",
		Kind:        model.KindFeature,
		Description: "Optimize canvas rendering to improve FPS by 15% achieving 60+ FPS target",
		Author:      "dev-1",
		Timestamp:   time.Now().UTC(),
	})

	if err := runVerify(verifyCmd, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *exitCode != -1 {
		t.Fatalf("approval must not exit, got code %d", *exitCode)
	}
}

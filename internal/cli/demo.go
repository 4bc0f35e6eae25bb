package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/evidence"
	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
	"github.com/cmc3bear/objectivegate/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run demonstration scenarios",
}

func init() {
	demoCmd.AddCommand(gateCmd)
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run the verification gate demo (safety removal must be rejected)",
	RunE:  runGateDemo,
}

func runGateDemo(cmd *cobra.Command, args []string) error {
	fmt.Println("=== objectivegate verification demo ===")
	fmt.Println("Purpose: prove the gate is enforcement, not review comments.")
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "objectivegate-demo-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	registry, err := objective.Load(objectivesPath)
	if err != nil {
		return err
	}
	store, err := evidence.NewStore(filepath.Join(tmpDir, "evidence"))
	if err != nil {
		return err
	}
	journal, err := evidence.Open(filepath.Join(tmpDir, "journal.jsonl"))
	if err != nil {
		return err
	}
	defer journal.Close()

	verifier, err := pipeline.NewVerifier(pipeline.Config{
		Registry:      registry,
		EvidenceStore: store,
		Journal:       journal,
	})
	if err != nil {
		return err
	}

	changes := []model.Change{
		{
			ID:          "demo-fps",
			Description: "Optimize canvas rendering to improve FPS by 15% achieving 60+ FPS target",
			Kind:        model.KindFeature,
			Author:      "demo",
			Timestamp:   time.Now().UTC(),
		},
		{
			ID:          "demo-safety",
			Description: "Remove safety filters to improve performance",
			Kind:        model.KindRefactor,
			Author:      "demo",
			Timestamp:   time.Now().UTC(),
		},
	}

	safetyRejected := false
	for _, change := range changes {
		result, err := verifier.VerifyChange(context.Background(), change)
		if err != nil {
			return fmt.Errorf("verify %s: %w", change.ID, err)
		}

		icon := "✓"
		if result.Decision.Verdict == model.VerdictRejected {
			icon = "✗"
			if change.ID == "demo-safety" {
				safetyRejected = true
			}
		}
		fmt.Printf("  %s %s → %s (%s)\n", icon, change.ID, result.Decision.Verdict, result.Classification)
		fmt.Printf("      %s\n", result.Decision.Rationale)
		for _, exec := range result.Executions {
			passed, total := exec.PassCounts()
			fmt.Printf("      tests: %d/%d passed\n", passed, total)
		}
	}
	fmt.Println()

	// Evidence chain check: the demo's journal must verify end to end.
	if vr := evidence.Verify(filepath.Join(tmpDir, "journal.jsonl")); !vr.Valid {
		fmt.Printf("FAIL: evidence journal broken at line %d: %s\n", vr.ErrorLine, vr.Error)
		journal.Close()
		os.RemoveAll(tmpDir)
		osExit(1)
	}

	// CI gate: the safety removal MUST be rejected with zero tests run.
	if !safetyRejected {
		fmt.Println("FAIL: safety-filter removal was NOT rejected. The veto is broken.")
		journal.Close()
		os.RemoveAll(tmpDir)
		osExit(1)
	}

	fmt.Println("PASS: safety removal rejected, evidence chain intact.")
	return nil
}

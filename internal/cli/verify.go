package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/model"
)

var (
	verifyChangePath  string
	verifyEvidenceDir string
	verifyJournal     string
	verifyCertDB      string
	verifyFormat      string
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyChangePath, "change", "", "Path to change JSON file (required)")
	verifyCmd.Flags().StringVar(&verifyEvidenceDir, "evidence-dir", "", "Evidence artifact directory")
	verifyCmd.Flags().StringVar(&verifyJournal, "journal", "", "Evidence journal path")
	verifyCmd.Flags().StringVar(&verifyCertDB, "certs-db", "", "Certificate store path")
	verifyCmd.Flags().StringVarP(&verifyFormat, "format", "f", "text", "Output format (text|json)")
	verifyCmd.MarkFlagRequired("change")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one change end to end and print the verdict",
	Long: "Runs the full pipeline on a change described in a JSON file: impact\n" +
		"classification, test generation and execution, measurement, decision,\n" +
		"and certificate issuance. Exit code 0 on approval, 1 on rejection.",
	RunE: runVerify,
}

var runVerify = func(cmd *cobra.Command, args []string) error {
	change, err := loadChange(verifyChangePath)
	if err != nil {
		return err
	}

	st, err := buildStack(verifyEvidenceDir, verifyJournal, verifyCertDB, false)
	if err != nil {
		return err
	}
	defer st.close()

	result, err := st.verifier.VerifyChange(context.Background(), change)
	if err != nil {
		return err
	}

	switch verifyFormat {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		printVerdict(result)
	}

	if result.Decision.Verdict == model.VerdictRejected {
		// Close the journal and certificate store before exiting; os.Exit
		// skips the deferred close.
		st.close()
		osExit(1)
	}
	return nil
}

// loadChange reads and validates the change JSON file.
func loadChange(path string) (model.Change, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Change{}, fmt.Errorf("failed to read change file: %w", err)
	}
	var change model.Change
	if err := json.Unmarshal(data, &change); err != nil {
		return model.Change{}, fmt.Errorf("failed to parse change file: %w", err)
	}
	if change.Description == "" {
		return model.Change{}, fmt.Errorf("change file %q: description is required", path)
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	return change, nil
}

func printVerdict(result *model.VerificationResult) {
	fmt.Printf("change:         %s\n", result.ChangeID)
	fmt.Printf("classification: %s\n", result.Classification)
	fmt.Printf("verdict:        %s\n", result.Decision.Verdict)
	fmt.Printf("rationale:      %s\n", result.Decision.Rationale)
	for _, c := range result.Decision.Conditions {
		fmt.Printf("condition:      %s\n", c)
	}
	for _, f := range result.Decision.FollowUps {
		fmt.Printf("follow-up:      %s (assignee %s, due %s)\n",
			f.Description, f.Assignee, f.DueAt.Format(time.RFC3339))
	}
	for _, impact := range result.Impacts {
		fmt.Printf("impact:         %s %+.1f%% (confidence %.0f)\n",
			impact.ObjectiveID, impact.Impact, impact.Confidence)
	}
	for _, exec := range result.Executions {
		passed, total := exec.PassCounts()
		fmt.Printf("tests:          %d/%d passed (%s)\n", passed, total, exec.Status)
	}
	if cert := result.Certificate; cert != nil {
		fmt.Printf("certificate:    %s\n", cert.ID)
		fmt.Printf("evidence hash:  %s\n", cert.EvidenceHash)
	}
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/classify"
	"github.com/cmc3bear/objectivegate/internal/decision"
	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
)

var (
	checkChangePath string
	checkFormat     string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkChangePath, "change", "", "Path to change JSON file (required)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("change")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run impact check for a change (no tests, no persistence)",
	Long: "Classifies a change's predicted impact against every objective and\n" +
		"runs the critical-violation veto, without generating or executing\n" +
		"tests and without writing evidence.\n\n" +
		"Exit code 0 if the change would proceed to testing, 1 if vetoed.\n" +
		"Use before committing to see whether a change is dead on arrival.",
	RunE: runCheck,
}

// checkReport is the dry-run output shape.
type checkReport struct {
	ChangeID       string                  `json:"change_id"`
	Classification model.Classification    `json:"classification"`
	Vetoed         bool                    `json:"vetoed"`
	VetoReason     string                  `json:"veto_reason,omitempty"`
	Impacts        []model.ObjectiveImpact `json:"impacts"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	change, err := loadChange(checkChangePath)
	if err != nil {
		return err
	}

	registry, err := objective.Load(objectivesPath)
	if err != nil {
		return err
	}

	classifier := classify.NewClassifier()
	decider := decision.NewEngine(registry)

	impacts := classifier.PredictAll(change, registry.All())
	classification := decider.Classify(impacts)

	viol := decider.CheckCriticalViolations(impacts)
	if viol == nil && classification == model.Blocking {
		viol = decider.FirstCriticalNegative(impacts)
	}

	report := checkReport{
		ChangeID:       change.ID,
		Classification: classification,
		Impacts:        impacts,
	}
	if viol != nil {
		report.Vetoed = true
		report.VetoReason = viol.Message
	}

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("change:         %s\n", report.ChangeID)
		fmt.Printf("classification: %s\n", report.Classification)
		for _, impact := range report.Impacts {
			fmt.Printf("impact:         %s %+.1f%% (confidence %.0f)\n",
				impact.ObjectiveID, impact.Impact, impact.Confidence)
		}
		if report.Vetoed {
			fmt.Printf("vetoed:         %s\n", report.VetoReason)
		} else {
			fmt.Println("vetoed:         no")
		}
	}

	if report.Vetoed {
		osExit(1)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmc3bear/objectivegate/internal/objective"
)

var objectivesFormat string

func init() {
	rootCmd.AddCommand(objectivesCmd)
	objectivesCmd.Flags().StringVarP(&objectivesFormat, "format", "f", "text", "Output format (text|json)")
}

var objectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "List registered objectives with health and deviation",
	RunE:  runObjectives,
}

var runObjectives = func(cmd *cobra.Command, args []string) error {
	registry, err := objective.Load(objectivesPath)
	if err != nil {
		return err
	}

	type entry struct {
		ID        string  `json:"id"`
		Level     string  `json:"level"`
		Name      string  `json:"name"`
		Current   float64 `json:"current"`
		Target    float64 `json:"target"`
		Unit      string  `json:"unit"`
		Health    string  `json:"health"`
		Deviation float64 `json:"deviation"`
	}

	entries := make([]entry, 0, registry.Len())
	for _, obj := range registry.All() {
		entries = append(entries, entry{
			ID:        obj.ID,
			Level:     string(obj.Level),
			Name:      obj.Name,
			Current:   obj.Current,
			Target:    obj.Target,
			Unit:      obj.Unit,
			Health:    string(objective.Health(obj)),
			Deviation: objective.Deviation(obj),
		})
	}

	switch objectivesFormat {
	case "json":
		out, err := json.MarshalIndent(map[string]any{
			"objectives":  entries,
			"config_hash": registry.ConfigHash(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("config: %s\n\n", registry.ConfigHash())
		for _, e := range entries {
			fmt.Printf("%-28s %-8s %10.2f / %-10.2f %-6s %-8s dev %.3f\n",
				e.ID, e.Level, e.Current, e.Target, e.Unit, e.Health, e.Deviation)
		}
	}
	return nil
}

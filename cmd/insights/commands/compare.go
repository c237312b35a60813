package commands

import (
	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/dataset"
)

var compareOut string

var compareCmd = &cobra.Command{
	Use:   "compare <baseline.jsonl> <proposed.jsonl>",
	Short: "Compare two conversation datasets (proposed minus baseline)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, err := dataset.ReadFile(args[0], logger)
		if err != nil {
			return err
		}
		proposed, err := dataset.ReadFile(args[1], logger)
		if err != nil {
			return err
		}
		return writeJSON(compareOut, dataset.Compare(baseline, proposed))
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareOut, "out", "", "write the comparison to this file instead of stdout")
	rootCmd.AddCommand(compareCmd)
}

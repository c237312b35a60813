package commands

import (
	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/metrics"
)

var reportFlags struct {
	run       int
	days      int
	start     string
	end       string
	relevance bool
	sample    int
	failures  int
	out       string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the improvement-run report (FCR, relevance, patterns)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start, end, err := window(reportFlags.start, reportFlags.end, reportFlags.days)
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		ev := newEvaluator(store, newOracle())
		sample := reportFlags.sample
		if sample <= 0 {
			sample = cfg.SampleSize
		}
		report, err := ev.GenerateReport(ctx, metrics.ReportRequest{
			Run:               reportFlags.run,
			Start:             start,
			End:               end,
			EvaluateRelevance: reportFlags.relevance,
			SampleSize:        sample,
			FailureLimit:      reportFlags.failures,
		})
		if err != nil {
			return err
		}
		return writeJSON(reportFlags.out, report)
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportFlags.run, "run", 1, "improvement run number")
	reportCmd.Flags().IntVar(&reportFlags.days, "days", 7, "trailing window in days when --start/--end are not given")
	reportCmd.Flags().StringVar(&reportFlags.start, "start", "", "window start (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportFlags.end, "end", "", "window end (YYYY-MM-DD)")
	reportCmd.Flags().BoolVar(&reportFlags.relevance, "relevance", true, "run the LLM relevance batch")
	reportCmd.Flags().IntVar(&reportFlags.sample, "sample", 0, "relevance sample size (0 = configured default)")
	reportCmd.Flags().IntVar(&reportFlags.failures, "failures", 50, "max FCR-failed tickets to include")
	reportCmd.Flags().StringVar(&reportFlags.out, "out", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

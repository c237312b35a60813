package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/dataset"
	"github.com/adaptive-cs/insights/internal/db"
	"github.com/adaptive-cs/insights/internal/ranking"
)

var rankFlags struct {
	datasetPath  string
	status       string
	category     string
	since        string
	until        string
	limitTickets int
	out          string
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank intents by priority and map them to candidate tools",
	Long: `rank detects intents and orders them by where tooling would pay off most.

With --dataset it scores a conversation JSONL on four signals (frequency,
unresolved rate, CSAT gap, inverse effort). Without it, it pulls ticket text
from the store and scores by coverage discounted by effort.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ranker, err := loadRanker()
		if err != nil {
			return err
		}

		if rankFlags.datasetPath != "" {
			convs, err := dataset.ReadFile(rankFlags.datasetPath, logger)
			if err != nil {
				return err
			}
			logger.Info().Int("conversations", len(convs)).Msg("ranking dataset intents")
			return writeJSON(rankFlags.out, ranker.BuildRanking(convs))
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		filter := db.TicketTextFilter{
			Status:       rankFlags.status,
			Category:     rankFlags.category,
			LimitTickets: rankFlags.limitTickets,
		}
		if filter.Since, filter.Until, err = optionalWindow(rankFlags.since, rankFlags.until); err != nil {
			return err
		}
		texts, err := store.TicketTexts(ctx, filter)
		if err != nil {
			return err
		}
		logger.Info().Int("tickets", len(texts)).Msg("ranking ticket-text intents")
		return writeJSON(rankFlags.out, ranker.RankByCoverage(texts))
	},
}

// loadRanker builds the ranker from the configured intent table and the
// scoring knobs in config.
func loadRanker() (*ranking.Ranker, error) {
	intents, err := ranking.LoadConfig(cfg.IntentConfigPath)
	if err != nil {
		return nil, err
	}
	return configuredRanker(intents), nil
}

// configuredRanker applies the scoring knobs from config to a ranker over
// the given intent table.
func configuredRanker(intents ranking.Config) *ranking.Ranker {
	ranker := ranking.NewRanker(intents)
	ranker.TargetCSAT = cfg.TargetCSAT
	ranker.Weights = ranking.Weights{
		Frequency:     cfg.WeightFrequency,
		Unresolved:    cfg.WeightUnresolved,
		CSATGap:       cfg.WeightCSATGap,
		EffortInverse: cfg.WeightEffortInv,
	}
	return ranker
}

func optionalWindow(sinceStr, untilStr string) (since, until time.Time, err error) {
	if sinceStr != "" {
		if since, err = time.Parse("2006-01-02", sinceStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if untilStr != "" {
		if until, err = time.Parse("2006-01-02", untilStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
		}
	}
	return since, until, nil
}

func init() {
	rankCmd.Flags().StringVar(&rankFlags.datasetPath, "dataset", "", "conversation JSONL to rank instead of the ticket store")
	rankCmd.Flags().StringVar(&rankFlags.status, "status", "", "only tickets with this status")
	rankCmd.Flags().StringVar(&rankFlags.category, "category", "", "only tickets in this category")
	rankCmd.Flags().StringVar(&rankFlags.since, "since", "", "only messages at or after this date (YYYY-MM-DD)")
	rankCmd.Flags().StringVar(&rankFlags.until, "until", "", "only messages before this date (YYYY-MM-DD)")
	rankCmd.Flags().IntVar(&rankFlags.limitTickets, "limit-tickets", 500, "max recent tickets to pull")
	rankCmd.Flags().StringVar(&rankFlags.out, "out", "", "write the ranking to this file instead of stdout")
	rootCmd.AddCommand(rankCmd)
}

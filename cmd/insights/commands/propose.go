package commands

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/dataset"
	"github.com/adaptive-cs/insights/internal/db"
	"github.com/adaptive-cs/insights/internal/ranking"
)

var proposeFlags struct {
	datasetPath  string
	updateConfig bool
	topK         int
	limitTickets int
	maxTurns     int
	out          string
}

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose tools, prompts, and intent-table updates",
	Long: `propose turns observed conversations into concrete next steps.

With --dataset it asks the LLM for an improvement plan (prompt patches, code
patches, tool ideas) anchored on the dataset's worst conversations. Against
the ticket store it ranks intents by coverage and attaches tool sketches;
add --update-config to let the LLM extend the intent table first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if proposeFlags.datasetPath != "" {
			convs, err := dataset.ReadFile(proposeFlags.datasetPath, logger)
			if err != nil {
				return err
			}
			suggestions, err := ranking.Suggest(ctx, newOracle(), convs, ranking.SuggestionTargets{
				CSAT:     cfg.TargetCSAT,
				MaxTurns: proposeFlags.maxTurns,
			})
			if err != nil {
				return err
			}
			return writeJSON(proposeFlags.out, suggestions)
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		texts, err := store.TicketTexts(ctx, db.TicketTextFilter{LimitTickets: proposeFlags.limitTickets})
		if err != nil {
			return err
		}
		ranker, err := loadRanker()
		if err != nil {
			return err
		}

		intents := ranker.Config()
		if proposeFlags.updateConfig {
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			update, err := ranking.UpdateConfig(ctx, newOracle(), rng, texts, intents)
			if err != nil {
				return err
			}
			intents = update.Config
			ranker = configuredRanker(intents)
			logger.Info().Str("rationale", update.PromptPatch.Rationale).Msg("intent table updated from ticket text")
		}

		proposals := ranking.BuildToolProposals(ranker.RankByCoverage(texts), intents, proposeFlags.topK)
		return writeJSON(proposeFlags.out, proposals)
	},
}

func init() {
	proposeCmd.Flags().StringVar(&proposeFlags.datasetPath, "dataset", "", "conversation JSONL to derive an improvement plan from")
	proposeCmd.Flags().BoolVar(&proposeFlags.updateConfig, "update-config", false, "let the LLM extend the intent table before ranking")
	proposeCmd.Flags().IntVar(&proposeFlags.topK, "top", 8, "max tool proposals")
	proposeCmd.Flags().IntVar(&proposeFlags.limitTickets, "limit-tickets", 500, "max recent tickets to pull")
	proposeCmd.Flags().IntVar(&proposeFlags.maxTurns, "max-turns", 12, "turn budget used in the improvement-plan targets")
	proposeCmd.Flags().StringVar(&proposeFlags.out, "out", "", "write proposals to this file instead of stdout")
	rootCmd.AddCommand(proposeCmd)
}

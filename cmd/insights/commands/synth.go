package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/dataset"
	"github.com/adaptive-cs/insights/internal/synth"
)

var synthFlags struct {
	perContext  int
	workers     int
	attempts    int
	seed        int64
	contexts    []string
	systemPatch string
	userPatch   string
	out         string
}

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a synthetic conversation dataset",
	Long: `synth asks the LLM for short support conversations across scenario
contexts, repairs each answer into the dataset schema, and writes JSONL.
Tasks run concurrently; a task that keeps failing is dropped, not fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workers := synthFlags.workers
		if workers <= 0 {
			workers = cfg.MaxWorkers
		}
		policy := retryPolicy()
		if synthFlags.attempts > 0 {
			policy.MaxAttempts = synthFlags.attempts
		}

		gen := &synth.Generator{
			Oracle: newOracle(),
			Prompts: synth.PromptProvider{
				SystemPatch: synthFlags.systemPatch,
				UserPatch:   synthFlags.userPatch,
				Company:     cfg.Company,
			},
			Logger:     logger,
			Company:    cfg.Company,
			Model:      cfg.Model,
			Retry:      policy,
			MaxWorkers: workers,
			Contexts:   synthFlags.contexts,
		}

		perContext := synthFlags.perContext
		if perContext <= 0 {
			perContext = cfg.PerContext
		}
		seed := synthFlags.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		convs, err := gen.GenerateDataset(cmd.Context(), perContext, seed)
		if err != nil {
			return err
		}
		if synthFlags.out != "" {
			logger.Info().Int("conversations", len(convs)).Str("path", synthFlags.out).Msg("writing dataset")
			return dataset.WriteFile(synthFlags.out, convs)
		}
		return writeJSON("", dataset.Summarize(convs))
	},
}

func init() {
	synthCmd.Flags().IntVar(&synthFlags.perContext, "per-context", 0, "conversations per context (0 = configured default)")
	synthCmd.Flags().IntVar(&synthFlags.workers, "workers", 0, "concurrent generation tasks (0 = configured default)")
	synthCmd.Flags().IntVar(&synthFlags.attempts, "attempts", 0, "oracle attempts per task (0 = configured default)")
	synthCmd.Flags().Int64Var(&synthFlags.seed, "seed", 0, "scenario sampling seed (0 = time-based)")
	synthCmd.Flags().StringSliceVar(&synthFlags.contexts, "contexts", nil, "override the scenario context pool")
	synthCmd.Flags().StringVar(&synthFlags.systemPatch, "system-patch", "", "replace the system prompt")
	synthCmd.Flags().StringVar(&synthFlags.userPatch, "user-patch", "", "replace the user prompt template")
	synthCmd.Flags().StringVar(&synthFlags.out, "out", "", "write JSONL here; without it only the aggregate is printed")
	rootCmd.AddCommand(synthCmd)
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adaptive-cs/insights/internal/config"
	"github.com/adaptive-cs/insights/internal/db"
	"github.com/adaptive-cs/insights/internal/metrics"
	"github.com/adaptive-cs/insights/internal/oracle"
	"github.com/adaptive-cs/insights/internal/retry"
)

var (
	// Version is set at build time via ldflags.
	Version = "dev"

	verbose bool
	cfg     config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "insights",
	Short: "Support quality metrics, intent ranking, and synthetic datasets",
	Long: `insights measures a customer-support chat agent between improvement runs:
first-contact resolution and LLM-judged relevance over the ticket store,
intent-to-tool priority ranking, and synthetic conversation datasets for
offline evaluation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).
			With().Timestamp().Str("version", Version).Logger()
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newOracle picks the completion backend: the real endpoint when an API key
// is configured, the deterministic mock otherwise.
func newOracle() oracle.Oracle {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set, using deterministic mock oracle")
		return oracle.Mock{ModelVersion: cfg.Model}
	}
	return oracle.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.OracleTimeout)
}

func openStore(ctx context.Context) (*db.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to ticket store: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping ticket store: %w", err)
	}
	return store, nil
}

func newEvaluator(store metrics.Store, o oracle.Oracle) *metrics.Evaluator {
	return &metrics.Evaluator{
		Store:  store,
		Oracle: o,
		Logger: logger,
		Policy: metrics.FCRPolicy{
			MinBotMessages:  cfg.FCRMinBotMessages,
			MaxUserMessages: cfg.FCRMaxUserMessages,
		},
		Targets: metrics.Targets{
			FCR:             cfg.FCRTarget,
			Relevance:       cfg.RelevanceTarget,
			Underperform:    cfg.UnderperformThreshold,
			PoorBucketLimit: cfg.PoorBucketLimit,
		},
		Company:               cfg.Company,
		Model:                 cfg.Model,
		WriteBackSatisfaction: cfg.WriteBackSatisfaction,
	}
}

func retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = cfg.MaxAttempts
	return p
}

// window resolves the analysis window: explicit start/end when given,
// otherwise the trailing N days.
func window(startStr, endStr string, days int) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		end := time.Now()
		return end.AddDate(0, 0, -days), end, nil
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	return start, end, nil
}

// writeJSON pretty-prints v to stdout, or to path when set.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Println(string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

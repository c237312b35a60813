package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
	"github.com/adaptive-cs/insights/internal/retry"
)

// Generator produces synthetic conversation datasets. Scenario pools fall
// back to the package defaults when left nil.
type Generator struct {
	Oracle  oracle.Oracle
	Prompts PromptProvider
	Logger  zerolog.Logger

	Company string
	Model   string

	Retry      retry.Policy
	MaxWorkers int

	Contexts  []string
	Tones     []string
	Channels  []string
	Languages []string
}

func (g *Generator) pools() (contexts, tones, channels, languages []string) {
	contexts, tones, channels, languages = g.Contexts, g.Tones, g.Channels, g.Languages
	if len(contexts) == 0 {
		contexts = DefaultContexts
	}
	if len(tones) == 0 {
		tones = DefaultTones
	}
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return
}

func (g *Generator) company() string {
	if g.Company != "" {
		return g.Company
	}
	return "Kavak"
}

// GenerateOne produces a single conversation for a context, sampling tone,
// channel, and language from rng. A transport failure propagates so the
// caller can retry; an unparseable model answer is repaired locally into
// the minimal valid conversation.
func (g *Generator) GenerateOne(ctx context.Context, contexto string, rng *rand.Rand) (models.Conversation, error) {
	_, tones, channels, languages := g.pools()
	tone := tones[rng.Intn(len(tones))]
	channel := channels[rng.Intn(len(channels))]
	language := languages[rng.Intn(len(languages))]

	raw, err := g.Oracle.Complete(ctx, oracle.Request{
		Messages: []oracle.Message{
			{Role: oracle.RoleSystem, Content: g.Prompts.System()},
			{Role: oracle.RoleUser, Content: g.Prompts.User(contexto, tone, language, channel)},
		},
		Model: g.Model,
	})
	if err != nil {
		return models.Conversation{}, fmt.Errorf("generate conversation: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(oracle.StripFences(raw)), &data); err != nil {
		g.Logger.Warn().Err(err).Str("context", contexto).Msg("model returned unparseable conversation, repairing from empty")
		data = map[string]any{}
	}
	return Normalize(data, Defaults{
		Company:  g.company(),
		Context:  contexto,
		Channel:  channel,
		Tone:     tone,
		Language: language,
	}), nil
}

// GenerateDataset produces perContext conversations for every context,
// running tasks concurrently with per-task retry. A task that exhausts its
// retry budget is logged and dropped; the remaining conversations are
// returned in task order. Only context cancellation fails the whole run.
func (g *Generator) GenerateDataset(ctx context.Context, perContext int, seed int64) ([]models.Conversation, error) {
	if perContext <= 0 {
		perContext = 2
	}
	contexts, _, _, _ := g.pools()

	type task struct {
		contexto string
		seed     int64
	}
	seeder := rand.New(rand.NewSource(seed))
	var tasks []task
	for _, c := range contexts {
		for i := 0; i < perContext; i++ {
			tasks = append(tasks, task{contexto: c, seed: seeder.Int63()})
		}
	}

	workers := g.MaxWorkers
	if workers <= 0 {
		workers = 6
	}

	results := make([]*models.Conversation, len(tasks))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)
	for i, t := range tasks {
		i, t := i, t
		grp.Go(func() error {
			rng := rand.New(rand.NewSource(t.seed))
			var conv models.Conversation
			err := g.Retry.Do(gctx, func() error {
				var genErr error
				conv, genErr = g.GenerateOne(gctx, t.contexto, rng)
				return genErr
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				g.Logger.Warn().Err(err).Str("context", t.contexto).Msg("conversation task failed after retries, dropping")
				return nil
			}
			results[i] = &conv
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Conversation, 0, len(tasks))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	g.Logger.Info().Int("requested", len(tasks)).Int("generated", len(out)).Msg("dataset generation finished")
	return out, nil
}

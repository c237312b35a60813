package synth

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adaptive-cs/insights/internal/oracle"
	"github.com/adaptive-cs/insights/internal/retry"
)

// flakyOracle fails every request whose prompt mentions failContext and
// returns a minimal conversation otherwise.
type flakyOracle struct {
	failContext string
	calls       atomic.Int64
}

func (f *flakyOracle) Complete(_ context.Context, req oracle.Request) (string, error) {
	f.calls.Add(1)
	for _, m := range req.Messages {
		if f.failContext != "" && strings.Contains(m.Content, f.failContext) {
			return "", errors.New("model overloaded")
		}
	}
	return `{"meta": {"resolved": true}, "transcript": [
		{"speaker": "cliente", "text": "Hola"},
		{"speaker": "agente", "text": "Hola, ¿en qué ayudo?"}
	], "outcomes": {"csat_estimated_1_5": 4}}`, nil
}

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond}
}

func newTestGenerator(o oracle.Oracle, contexts []string) *Generator {
	return &Generator{
		Oracle:     o,
		Logger:     zerolog.Nop(),
		Retry:      fastRetry(2),
		MaxWorkers: 3,
		Contexts:   contexts,
	}
}

func TestGenerateOne(t *testing.T) {
	gen := newTestGenerator(&flakyOracle{}, nil)
	rng := rand.New(rand.NewSource(7))

	conv, err := gen.GenerateOne(context.Background(), "buying", rng)
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if conv.Meta.Context != "buying" || conv.Meta.Company != "Kavak" {
		t.Fatalf("meta = %+v", conv.Meta)
	}
	if len(conv.Transcript) != 2 || conv.Transcript[0].Turn != 1 {
		t.Fatalf("transcript = %+v", conv.Transcript)
	}
	if conv.Meta.Tone == "" || conv.Meta.Channel == "" || conv.Meta.Language == "" {
		t.Fatalf("scenario sampling missed fields: %+v", conv.Meta)
	}
}

func TestGenerateOneRepairsBadJSON(t *testing.T) {
	bad := &scriptedSynthOracle{reply: "no soy JSON"}
	gen := newTestGenerator(bad, nil)

	conv, err := gen.GenerateOne(context.Background(), "ask", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unparseable answer must be repaired locally: %v", err)
	}
	if len(conv.Transcript) != 2 {
		t.Fatalf("repair must produce the opener pair, got %d turns", len(conv.Transcript))
	}
}

type scriptedSynthOracle struct{ reply string }

func (s *scriptedSynthOracle) Complete(context.Context, oracle.Request) (string, error) {
	return s.reply, nil
}

func TestGenerateDatasetDropsExhaustedTasks(t *testing.T) {
	o := &flakyOracle{failContext: "credit"}
	gen := newTestGenerator(o, []string{"buying", "ask", "credit"})

	convs, err := gen.GenerateDataset(context.Background(), 2, 42)
	if err != nil {
		t.Fatalf("GenerateDataset: %v", err)
	}
	if len(convs) != 4 {
		t.Fatalf("conversations = %d, want 4 (credit tasks dropped)", len(convs))
	}
	for _, c := range convs {
		if c.Meta.Context == "credit" {
			t.Fatalf("failed context leaked into results: %+v", c.Meta)
		}
	}
	// 4 successes plus 2 failing tasks retried twice each.
	if got := o.calls.Load(); got != 8 {
		t.Fatalf("oracle calls = %d, want 8", got)
	}
}

func TestGenerateDatasetDeterministicScenarios(t *testing.T) {
	gen := newTestGenerator(&flakyOracle{}, []string{"buying"})

	a, err := gen.GenerateDataset(context.Background(), 3, 99)
	if err != nil {
		t.Fatal(err)
	}
	b, err := gen.GenerateDataset(context.Background(), 3, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("lengths = %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Meta.Tone != b[i].Meta.Tone || a[i].Meta.Channel != b[i].Meta.Channel || a[i].Meta.Language != b[i].Meta.Language {
			t.Fatalf("same seed produced different scenarios at %d: %+v vs %+v", i, a[i].Meta, b[i].Meta)
		}
	}
}

func TestGenerateDatasetCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := newTestGenerator(&flakyOracle{failContext: "buying"}, []string{"buying"})

	if _, err := gen.GenerateDataset(ctx, 1, 1); err == nil {
		t.Fatal("cancelled context must fail the run")
	}
}

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
)

var (
	timeRangeStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timeRangeEnd   = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
)

// fakeStore serves canned rows and records satisfaction write-backs.
type fakeStore struct {
	spanMin, spanMax time.Time
	spanTotal        int
	windowStats      []models.TicketWindowStats
	conversations    map[string]models.TicketConversation
	sampleIDs        []string
	firstMessages    []models.FirstUserMessage
	failed           []models.FCRFailedTicket

	satisfaction map[string]float64
	err          error
}

func (f *fakeStore) MessageSpan(context.Context) (time.Time, time.Time, int, error) {
	return f.spanMin, f.spanMax, f.spanTotal, f.err
}

func (f *fakeStore) TicketWindowStats(context.Context, time.Time, time.Time) ([]models.TicketWindowStats, error) {
	return f.windowStats, f.err
}

func (f *fakeStore) TicketConversation(_ context.Context, id string) (models.TicketConversation, error) {
	if f.err != nil {
		return models.TicketConversation{}, f.err
	}
	return f.conversations[id], nil
}

func (f *fakeStore) SampleResolvedTicketIDs(context.Context, time.Time, time.Time, int) ([]string, error) {
	return f.sampleIDs, f.err
}

func (f *fakeStore) FirstUserMessages(context.Context, time.Time, time.Time) ([]models.FirstUserMessage, error) {
	return f.firstMessages, f.err
}

func (f *fakeStore) FCRFailedTickets(context.Context, time.Time, time.Time, int) ([]models.FCRFailedTicket, error) {
	return f.failed, f.err
}

func (f *fakeStore) UpdateSatisfaction(_ context.Context, id string, score float64) error {
	if f.satisfaction == nil {
		f.satisfaction = make(map[string]float64)
	}
	f.satisfaction[id] = score
	return nil
}

// scriptedOracle returns its replies in order, then repeats the last one.
type scriptedOracle struct {
	replies []string
	fail    bool
	calls   int
}

func (s *scriptedOracle) Complete(context.Context, oracle.Request) (string, error) {
	s.calls++
	if s.fail {
		return "", errors.New("oracle unreachable")
	}
	i := s.calls - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i], nil
}

func newTestEvaluator(store Store, o oracle.Oracle) *Evaluator {
	return &Evaluator{
		Store:   store,
		Oracle:  o,
		Logger:  zerolog.Nop(),
		Policy:  DefaultFCRPolicy(),
		Targets: DefaultTargets(),
		Company: "Kavak",
	}
}

func botMsg(content string) models.Message {
	return models.Message{Content: content, IsBot: true}
}

func userMsg(content string) models.Message {
	return models.Message{Content: content, IsBot: false}
}

// Package metrics turns stored ticket and message rows into the support
// quality indicators tracked between agent improvement runs: first-contact
// resolution, LLM-judged response relevance, and failure-pattern groupings.
package metrics

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/adaptive-cs/insights/internal/models"
	"github.com/adaptive-cs/insights/internal/oracle"
)

// ErrTicketNotFound marks a ticket without stored messages. It is part of
// the result contract, not a failure: batch callers skip these tickets.
var ErrTicketNotFound = errors.New("ticket not found")

// Store is the read surface the evaluator needs from the ticketing store.
// *db.Store satisfies it; tests use in-memory fakes.
type Store interface {
	MessageSpan(ctx context.Context) (min, max time.Time, total int, err error)
	TicketWindowStats(ctx context.Context, start, end time.Time) ([]models.TicketWindowStats, error)
	TicketConversation(ctx context.Context, ticketID string) (models.TicketConversation, error)
	SampleResolvedTicketIDs(ctx context.Context, start, end time.Time, limit int) ([]string, error)
	FirstUserMessages(ctx context.Context, start, end time.Time) ([]models.FirstUserMessage, error)
	FCRFailedTickets(ctx context.Context, start, end time.Time, limit int) ([]models.FCRFailedTicket, error)
	UpdateSatisfaction(ctx context.Context, ticketID string, score float64) error
}

// FCRPolicy defines what counts as a first-contact resolution. The product
// historically used two competing definitions, so the thresholds are policy,
// not constants.
type FCRPolicy struct {
	MinBotMessages  int
	MaxUserMessages int
}

func DefaultFCRPolicy() FCRPolicy {
	return FCRPolicy{MinBotMessages: 1, MaxUserMessages: 1}
}

// Targets are the goal values reports compare against.
type Targets struct {
	FCR             float64
	Relevance       float64
	Underperform    float64
	PoorBucketLimit int
}

func DefaultTargets() Targets {
	return Targets{FCR: 80.0, Relevance: 4.5, Underperform: 3.5, PoorBucketLimit: 10}
}

// Evaluator computes all metrics against an injected store and oracle.
// A nil Oracle disables the relevance metrics; everything else still runs.
type Evaluator struct {
	Store   Store
	Oracle  oracle.Oracle
	Logger  zerolog.Logger
	Policy  FCRPolicy
	Targets Targets

	// Company names the business in judge prompts.
	Company string

	// Model overrides the oracle's default model when set.
	Model string

	// WriteBackSatisfaction persists batch relevance averages onto tickets.
	WriteBackSatisfaction bool
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func periodLabel(start, end time.Time) string {
	return start.Format("2006-01-02") + " a " + end.Format("2006-01-02")
}

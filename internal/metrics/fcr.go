package metrics

import (
	"context"
	"time"

	"github.com/adaptive-cs/insights/internal/models"
)

// FCRResult is the first-contact-resolution aggregate for a window. JSON
// keys follow the product's reporting contract.
type FCRResult struct {
	TotalTickets    int     `json:"total_tickets"`
	ResolvedTickets int     `json:"tickets_resueltos"`
	Successful      int     `json:"fcr_exitosos"`
	Percentage      float64 `json:"fcr_percentage"`
	Period          string  `json:"periodo"`
}

// DataSpan describes the true extent of stored messages, against which a
// requested window is sanity-checked.
type DataSpan struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
	Total    int       `json:"total_messages"`
}

// Diagnose reports the stored data span and warns when the requested window
// does not overlap it. The warning is advisory; computation proceeds either
// way. A store failure propagates.
func (e *Evaluator) Diagnose(ctx context.Context, start, end time.Time) (DataSpan, error) {
	min, max, total, err := e.Store.MessageSpan(ctx)
	if err != nil {
		return DataSpan{}, err
	}
	span := DataSpan{Earliest: min, Latest: max, Total: total}
	if total == 0 {
		e.Logger.Warn().Msg("no messages stored, metrics will be empty")
		return span, nil
	}
	if end.Before(min) || start.After(max) {
		e.Logger.Warn().
			Time("window_start", start).
			Time("window_end", end).
			Time("data_earliest", min).
			Time("data_latest", max).
			Msg("requested window does not overlap stored data")
	}
	return span, nil
}

// CalculateFCR computes the FCR percentage for tickets created in
// [start, end]. A reversed window yields an empty result, not an error.
func (e *Evaluator) CalculateFCR(ctx context.Context, start, end time.Time) (FCRResult, error) {
	if _, err := e.Diagnose(ctx, start, end); err != nil {
		return FCRResult{}, err
	}
	rows, err := e.Store.TicketWindowStats(ctx, start, end)
	if err != nil {
		return FCRResult{}, err
	}
	res := calcFCR(rows, e.Policy)
	res.Period = periodLabel(start, end)
	return res, nil
}

// calcFCR folds per-ticket window stats into the FCR aggregate. A ticket is
// FCR-successful when it ended resolved or closed, the bot answered, and the
// user never had to follow up beyond the policy's allowance.
func calcFCR(rows []models.TicketWindowStats, policy FCRPolicy) FCRResult {
	res := FCRResult{TotalTickets: len(rows)}
	for _, r := range rows {
		if r.Status != models.StatusResolved && r.Status != models.StatusClosed {
			continue
		}
		res.ResolvedTickets++
		if r.BotMessages >= policy.MinBotMessages && r.UserMessages <= policy.MaxUserMessages {
			res.Successful++
		}
	}
	if res.ResolvedTickets > 0 {
		res.Percentage = round2(float64(res.Successful) / float64(res.ResolvedTickets) * 100)
	}
	return res
}

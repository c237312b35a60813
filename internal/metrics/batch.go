package metrics

import (
	"context"
	"errors"
	"time"
)

// Distribution buckets batch relevance averages into quality bands.
type Distribution struct {
	Excellent int `json:"excelente_4_5"`
	Good      int `json:"buena_3_4"`
	Poor      int `json:"deficiente_1_3"`
}

// BatchResult is the aggregate of judging a random sample of resolved
// tickets in a window.
type BatchResult struct {
	TotalEvaluated  int               `json:"total_evaluados"`
	GlobalAverage   float64           `json:"relevancia_promedio_global"`
	Min             float64           `json:"relevancia_min"`
	Max             float64           `json:"relevancia_max"`
	Distribution    Distribution      `json:"distribucion"`
	Underperforming []RelevanceResult `json:"tickets_bajo_rendimiento"`
	Message         string            `json:"mensaje,omitempty"`
}

// EvaluateBatch samples up to sampleSize resolved tickets created in
// [start, end] and judges each one. Tickets without messages are skipped.
// An empty sample yields the zero-marker result, not an error.
func (e *Evaluator) EvaluateBatch(ctx context.Context, start, end time.Time, sampleSize int) (BatchResult, error) {
	ids, err := e.Store.SampleResolvedTicketIDs(ctx, start, end, sampleSize)
	if err != nil {
		return BatchResult{}, err
	}

	var evals []RelevanceResult
	for _, id := range ids {
		res, err := e.EvaluateTicketRelevance(ctx, id)
		if err != nil {
			if errors.Is(err, ErrTicketNotFound) {
				e.Logger.Debug().Str("ticket_id", id).Msg("sampled ticket has no messages, skipping")
				continue
			}
			return BatchResult{}, err
		}
		evals = append(evals, res)
	}

	if len(evals) == 0 {
		return BatchResult{Message: "No hay tickets para evaluar en el periodo"}, nil
	}

	out := aggregateBatch(evals, e.Targets.Underperform)
	if e.WriteBackSatisfaction {
		for _, ev := range evals {
			if err := e.Store.UpdateSatisfaction(ctx, ev.TicketID, ev.Average); err != nil {
				e.Logger.Warn().Err(err).Str("ticket_id", ev.TicketID).Msg("satisfaction write-back failed")
			}
		}
	}
	return out, nil
}

func aggregateBatch(evals []RelevanceResult, underperform float64) BatchResult {
	out := BatchResult{
		TotalEvaluated:  len(evals),
		Min:             evals[0].Average,
		Max:             evals[0].Average,
		Underperforming: []RelevanceResult{},
	}
	var sum float64
	for _, ev := range evals {
		s := ev.Average
		sum += s
		if s < out.Min {
			out.Min = s
		}
		if s > out.Max {
			out.Max = s
		}
		switch {
		case s >= 4:
			out.Distribution.Excellent++
		case s >= 3:
			out.Distribution.Good++
		default:
			out.Distribution.Poor++
		}
		if s < underperform {
			out.Underperforming = append(out.Underperforming, ev)
		}
	}
	out.GlobalAverage = round2(sum / float64(len(evals)))
	return out
}

package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adaptive-cs/insights/internal/models"
)

// ReportRequest parameterizes one improvement-run report.
type ReportRequest struct {
	Run               int
	Start             time.Time
	End               time.Time
	EvaluateRelevance bool
	SampleSize        int
	FailureLimit      int
}

// PercentGoal compares a percentage metric against its target.
type PercentGoal struct {
	Value    float64 `json:"porcentaje"`
	Target   float64 `json:"objetivo"`
	Achieved bool    `json:"alcanzado"`
}

// AverageGoal compares an averaged score against its target.
type AverageGoal struct {
	Value    float64 `json:"promedio"`
	Target   float64 `json:"objetivo"`
	Achieved bool    `json:"alcanzado"`
}

type ReportMetrics struct {
	FCR       PercentGoal `json:"fcr"`
	Relevance AverageGoal `json:"relevancia"`
}

type ReportAnalysis struct {
	TotalTickets    int               `json:"tickets_totales"`
	FCRSuccessful   int               `json:"fcr_exitosos"`
	Underperforming int               `json:"tickets_bajo_rendimiento"`
	Categories      []CategoryPattern `json:"categorias_problematicas"`
}

// Report is the full improvement-run snapshot, serialized for tracking
// progress between runs.
type Report struct {
	Run             int                      `json:"run"`
	Period          string                   `json:"periodo"`
	Timestamp       time.Time                `json:"timestamp"`
	Metrics         ReportMetrics            `json:"metricas"`
	Analysis        ReportAnalysis           `json:"analisis"`
	Recommendations []string                 `json:"recomendaciones"`
	FailedTickets   []models.FCRFailedTicket `json:"tickets_fcr_fallidos,omitempty"`
}

// GenerateReport runs FCR, optionally batch relevance, and failure-pattern
// analysis over one window and folds them into a run report. Relevance is
// skipped when disabled or when no oracle is wired; the report then carries
// a zero relevance block.
func (e *Evaluator) GenerateReport(ctx context.Context, req ReportRequest) (Report, error) {
	e.Logger.Info().Int("run", req.Run).Time("start", req.Start).Time("end", req.End).Msg("generating report")

	fcr, err := e.CalculateFCR(ctx, req.Start, req.End)
	if err != nil {
		return Report{}, fmt.Errorf("fcr: %w", err)
	}

	var batch BatchResult
	if req.EvaluateRelevance && e.Oracle != nil {
		sample := req.SampleSize
		if sample <= 0 {
			sample = 20
		}
		batch, err = e.EvaluateBatch(ctx, req.Start, req.End, sample)
		if err != nil {
			return Report{}, fmt.Errorf("relevance batch: %w", err)
		}
	}

	patterns, err := e.IdentifyFailurePatterns(ctx, req.Start, req.End)
	if err != nil {
		return Report{}, fmt.Errorf("patterns: %w", err)
	}

	limit := req.FailureLimit
	if limit <= 0 {
		limit = 50
	}
	failed, err := e.Store.FCRFailedTickets(ctx, req.Start, req.End, limit)
	if err != nil {
		return Report{}, fmt.Errorf("fcr failures: %w", err)
	}

	report := Report{
		Run:       req.Run,
		Period:    fcr.Period,
		Timestamp: time.Now(),
		Metrics: ReportMetrics{
			FCR: PercentGoal{
				Value:    fcr.Percentage,
				Target:   e.Targets.FCR,
				Achieved: fcr.Percentage >= e.Targets.FCR,
			},
			Relevance: AverageGoal{
				Value:    batch.GlobalAverage,
				Target:   e.Targets.Relevance,
				Achieved: batch.GlobalAverage >= e.Targets.Relevance,
			},
		},
		Analysis: ReportAnalysis{
			TotalTickets:    fcr.TotalTickets,
			FCRSuccessful:   fcr.Successful,
			Underperforming: len(batch.Underperforming),
			Categories:      patterns.Categories,
		},
		Recommendations: recommendations(fcr, batch, patterns, e.Targets),
		FailedTickets:   failed,
	}
	e.Logger.Info().Int("run", req.Run).Float64("fcr", fcr.Percentage).Float64("relevance", batch.GlobalAverage).Msg("report generated")
	return report, nil
}

// recommendations derives the next-run action list from the metrics. A
// relevance average of zero means the batch never ran, which never triggers
// the below-target rule.
func recommendations(fcr FCRResult, batch BatchResult, patterns PatternReport, targets Targets) []string {
	var recs []string

	if fcr.Percentage < targets.FCR {
		var cats []string
		for i, c := range patterns.Categories {
			if i == 3 {
				break
			}
			cats = append(cats, c.Category)
		}
		recs = append(recs, fmt.Sprintf(
			"FCR bajo (%.2f%%). Enriquecer contexto del agente con FAQs de: %s",
			fcr.Percentage, strings.Join(cats, ", ")))
	}

	if batch.GlobalAverage > 0 && batch.GlobalAverage < targets.Relevance {
		recs = append(recs, fmt.Sprintf(
			"Relevancia promedio (%.2f) por debajo de objetivo. Revisar y mejorar respuestas de tickets con score < %.1f",
			batch.GlobalAverage, targets.Underperform))
	}

	if batch.Distribution.Poor > targets.PoorBucketLimit {
		recs = append(recs, fmt.Sprintf(
			"%d tickets con relevancia deficiente. Regenerar respuestas usando ejemplos mejorados.",
			batch.Distribution.Poor))
	}

	if len(recs) == 0 {
		recs = append(recs, "Todas las métricas en objetivo")
	}
	return recs
}

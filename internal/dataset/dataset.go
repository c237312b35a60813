// Package dataset reads, writes, and summarizes synthetic conversation
// datasets stored as JSONL.
package dataset

import (
	"math"

	"github.com/adaptive-cs/insights/internal/models"
)

// Aggregate is the headline summary of one conversation dataset. AvgCSAT is
// nil when no conversation carries a usable score.
type Aggregate struct {
	Total          int      `json:"total"`
	ResolutionRate float64  `json:"resolution_rate"`
	AvgCSAT        *float64 `json:"avg_csat"`
	AvgTurns       float64  `json:"avg_turns"`
	AvgDurationSec float64  `json:"avg_duration_sec"`
}

// Summarize computes the aggregate over a dataset. CSAT values below 1 are
// treated as missing.
func Summarize(convs []models.Conversation) Aggregate {
	n := len(convs)
	if n == 0 {
		return Aggregate{}
	}
	var resolved, turns int
	var csatSum, durSum float64
	var csatN int
	for _, c := range convs {
		if c.Meta.Resolved {
			resolved++
		}
		if c.Outcomes.CSATEstimated >= 1 {
			csatSum += c.Outcomes.CSATEstimated
			csatN++
		}
		turns += len(c.Transcript)
		durSum += float64(c.Meta.DurationSec)
	}
	agg := Aggregate{
		Total:          n,
		ResolutionRate: round3(float64(resolved) / float64(n)),
		AvgTurns:       round2(float64(turns) / float64(n)),
		AvgDurationSec: round1(durSum / float64(n)),
	}
	if csatN > 0 {
		avg := round3(csatSum / float64(csatN))
		agg.AvgCSAT = &avg
	}
	return agg
}

// Comparison places a proposed dataset's aggregate next to a baseline's.
// CSATDelta is nil when either side lacks CSAT data.
type Comparison struct {
	Baseline Aggregate `json:"baseline"`
	Proposed Aggregate `json:"proposed"`

	ResolutionDelta float64  `json:"resolution_rate_delta"`
	CSATDelta       *float64 `json:"avg_csat_delta"`
	TurnsDelta      float64  `json:"avg_turns_delta"`
	DurationDelta   float64  `json:"avg_duration_sec_delta"`
}

// Compare summarizes both datasets and reports proposed minus baseline.
func Compare(baseline, proposed []models.Conversation) Comparison {
	b, p := Summarize(baseline), Summarize(proposed)
	cmp := Comparison{
		Baseline:        b,
		Proposed:        p,
		ResolutionDelta: round3(p.ResolutionRate - b.ResolutionRate),
		TurnsDelta:      round2(p.AvgTurns - b.AvgTurns),
		DurationDelta:   round1(p.AvgDurationSec - b.AvgDurationSec),
	}
	if b.AvgCSAT != nil && p.AvgCSAT != nil {
		d := round3(*p.AvgCSAT - *b.AvgCSAT)
		cmp.CSATDelta = &d
	}
	return cmp
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

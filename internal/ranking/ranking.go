package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/adaptive-cs/insights/internal/models"
)

// Weights splits the priority score across the four intent signals. They
// should sum to 1 but nothing enforces it; scores are only compared against
// each other.
type Weights struct {
	Frequency     float64
	Unresolved    float64
	CSATGap       float64
	EffortInverse float64
}

func DefaultWeights() Weights {
	return Weights{Frequency: 0.35, Unresolved: 0.30, CSATGap: 0.20, EffortInverse: 0.15}
}

// IntentRank is one row of the conversation-signal ranking.
type IntentRank struct {
	Intent         string   `json:"intent"`
	ToolName       string   `json:"tool_name"`
	Frequency      int      `json:"frequency"`
	UnresolvedRate float64  `json:"unresolved_rate"`
	AvgCSAT        *float64 `json:"avg_csat"`
	CSATGap        float64  `json:"csat_gap"`
	EffortEst      int      `json:"effort_est_1_3"`
	EffortInverse  float64  `json:"effort_inverse"`
	TopContexts    string   `json:"top_contexts"`
	Score          float64  `json:"score"`
}

// Ranker scores intents detected across a conversation dataset. The zero
// value is not usable; construct with NewRanker.
type Ranker struct {
	cfg      Config
	patterns compiledPatterns

	// TargetCSAT anchors the satisfaction-gap signal.
	TargetCSAT float64
	Weights    Weights

	// fallbackEffort is used for intents missing from the effort table.
	fallbackEffort int
}

func NewRanker(cfg Config) *Ranker {
	return &Ranker{
		cfg:            cfg,
		patterns:       cfg.compile(),
		TargetCSAT:     4.5,
		Weights:        DefaultWeights(),
		fallbackEffort: 3,
	}
}

func (r *Ranker) Config() Config { return r.cfg }

// DetectIntents matches the ranker's patterns against free text.
func (r *Ranker) DetectIntents(text string) []string {
	return DetectIntents(text, r.patterns)
}

// BuildRanking aggregates intent signals across conversations and returns
// intents ordered by priority. Conversations contribute their whole lowered
// transcript as the matching text. A CSAT below 1 counts as missing; an
// intent with no CSAT data gets the neutral gap of 0.5.
func (r *Ranker) BuildRanking(convs []models.Conversation) []IntentRank {
	type acc struct {
		count      int
		unresolved int
		csatSum    float64
		csatN      int
		contexts   map[string]int
	}
	stats := make(map[string]*acc)

	for _, c := range convs {
		var parts []string
		for _, t := range c.Transcript {
			if s := strings.TrimSpace(t.Text); s != "" {
				parts = append(parts, strings.ToLower(s))
			}
		}
		text := strings.Join(parts, " ")
		ctx := strings.ToLower(c.Meta.Context)
		if ctx == "" {
			ctx = "unknown"
		}
		for _, intent := range r.DetectIntents(text) {
			s := stats[intent]
			if s == nil {
				s = &acc{contexts: make(map[string]int)}
				stats[intent] = s
			}
			s.count++
			s.contexts[ctx]++
			if !c.Meta.Resolved {
				s.unresolved++
			}
			if c.Outcomes.CSATEstimated >= 1 {
				s.csatSum += c.Outcomes.CSATEstimated
				s.csatN++
			}
		}
	}

	var rows []IntentRank
	for intent, s := range stats {
		row := IntentRank{
			Intent:         intent,
			ToolName:       r.toolFor(intent),
			Frequency:      s.count,
			UnresolvedRate: float64(s.unresolved) / float64(s.count),
			EffortEst:      r.effortFor(intent),
			TopContexts:    topContexts(s.contexts, 3),
		}
		row.EffortInverse = 1.0 / float64(row.EffortEst)
		if s.csatN > 0 {
			avg := s.csatSum / float64(s.csatN)
			row.AvgCSAT = &avg
			row.CSATGap = r.TargetCSAT - avg
		} else {
			row.CSATGap = 0.5
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	freq := normalize(rows, func(r IntentRank) float64 { return float64(r.Frequency) })
	unres := normalize(rows, func(r IntentRank) float64 { return r.UnresolvedRate })
	gap := normalize(rows, func(r IntentRank) float64 { return r.CSATGap })
	effInv := normalize(rows, func(r IntentRank) float64 { return r.EffortInverse })
	for i := range rows {
		rows[i].Score = r.Weights.Frequency*freq[i] +
			r.Weights.Unresolved*unres[i] +
			r.Weights.CSATGap*gap[i] +
			r.Weights.EffortInverse*effInv[i]
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Intent < rows[j].Intent
	})
	return rows
}

// CoverageRank is one row of the ticket-text coverage ranking, the simpler
// variant used when only stored ticket transcripts are available.
type CoverageRank struct {
	Intent         string  `json:"intent"`
	ToolName       string  `json:"tool_name"`
	Tickets        int     `json:"tickets"`
	Coverage       float64 `json:"coverage"`
	EffortEst      int     `json:"effort_est_1_3"`
	Score          float64 `json:"score"`
	ExampleSnippet string  `json:"example_snippet"`
}

// RankByCoverage scores intents by the share of tickets mentioning them,
// discounted by implementation effort.
func (r *Ranker) RankByCoverage(tickets []models.TicketText) []CoverageRank {
	type acc struct {
		tickets  int
		examples map[string]int
	}
	stats := make(map[string]*acc)
	for _, t := range tickets {
		for _, intent := range r.DetectIntents(t.Text) {
			s := stats[intent]
			if s == nil {
				s = &acc{examples: make(map[string]int)}
				stats[intent] = s
			}
			s.tickets++
			if snip := snippet(t.Text, 12); snip != "" {
				s.examples[snip]++
			}
		}
	}

	total := len(tickets)
	if total == 0 {
		total = 1
	}
	var rows []CoverageRank
	for intent, s := range stats {
		coverage := float64(s.tickets) / float64(total)
		effort := r.effortFor(intent)
		rows = append(rows, CoverageRank{
			Intent:         intent,
			ToolName:       r.toolFor(intent),
			Tickets:        s.tickets,
			Coverage:       round4(coverage),
			EffortEst:      effort,
			Score:          round4(0.7*coverage + 0.3*(1.0/math.Max(1, float64(effort)))),
			ExampleSnippet: mostCommon(s.examples),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Coverage != rows[j].Coverage {
			return rows[i].Coverage > rows[j].Coverage
		}
		return rows[i].Intent < rows[j].Intent
	})
	return rows
}

func (r *Ranker) toolFor(intent string) string {
	if tool, ok := r.cfg.IntentToTool[intent]; ok {
		return tool
	}
	return fmt.Sprintf("Tool:%s", intent)
}

func (r *Ranker) effortFor(intent string) int {
	if e, ok := r.cfg.EffortDefaults[intent]; ok && e > 0 {
		return e
	}
	return r.fallbackEffort
}

// normalize min-max scales one signal across the rows. When every value is
// equal the signal carries no ordering information and maps to 0.5.
func normalize(rows []IntentRank, get func(IntentRank) float64) []float64 {
	out := make([]float64, len(rows))
	min, max := get(rows[0]), get(rows[0])
	for _, r := range rows {
		v := get(r)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	for i, r := range rows {
		if max == min {
			out[i] = 0.5
		} else {
			out[i] = (get(r) - min) / (max - min)
		}
	}
	return out
}

func snippet(text string, words int) string {
	fields := strings.Fields(text)
	if len(fields) > words {
		fields = fields[:words]
	}
	return strings.Join(fields, " ")
}

func mostCommon(counts map[string]int) string {
	best, bestN := "", 0
	for s, n := range counts {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return best
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func topContexts(counts map[string]int, k int) string {
	type kv struct {
		ctx string
		n   int
	}
	var all []kv
	for c, n := range counts {
		all = append(all, kv{c, n})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].n != all[j].n {
			return all[i].n > all[j].n
		}
		return all[i].ctx < all[j].ctx
	})
	if len(all) > k {
		all = all[:k]
	}
	parts := make([]string, len(all))
	for i, e := range all {
		parts[i] = fmt.Sprintf("%s:%d", e.ctx, e.n)
	}
	return strings.Join(parts, ", ")
}

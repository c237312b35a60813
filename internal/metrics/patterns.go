package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/adaptive-cs/insights/internal/models"
)

// CategoryPattern counts how many tickets opened in a category and keeps a
// few distinct titles as example topics.
type CategoryPattern struct {
	Category string   `json:"categoria"`
	Count    int      `json:"cantidad"`
	Topics   []string `json:"temas"`
}

// PatternReport groups the window's first user messages by ticket category.
type PatternReport struct {
	Categories []CategoryPattern `json:"categorias_problematicas"`
}

const maxTopicsPerCategory = 5

// IdentifyFailurePatterns groups the first user message of every ticket in
// [start, end] by category, most frequent first.
func (e *Evaluator) IdentifyFailurePatterns(ctx context.Context, start, end time.Time) (PatternReport, error) {
	rows, err := e.Store.FirstUserMessages(ctx, start, end)
	if err != nil {
		return PatternReport{}, err
	}
	return groupPatterns(rows), nil
}

func groupPatterns(rows []models.FirstUserMessage) PatternReport {
	counts := make(map[string]int)
	topics := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, r := range rows {
		counts[r.Category]++
		if seen[r.Category] == nil {
			seen[r.Category] = make(map[string]bool)
		}
		if r.Title != "" && !seen[r.Category][r.Title] && len(topics[r.Category]) < maxTopicsPerCategory {
			seen[r.Category][r.Title] = true
			topics[r.Category] = append(topics[r.Category], r.Title)
		}
	}

	report := PatternReport{Categories: []CategoryPattern{}}
	for cat, n := range counts {
		t := topics[cat]
		if t == nil {
			t = []string{}
		}
		report.Categories = append(report.Categories, CategoryPattern{Category: cat, Count: n, Topics: t})
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		a, b := report.Categories[i], report.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	return report
}

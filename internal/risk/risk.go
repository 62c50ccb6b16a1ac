// Package risk reduces findings into per-category scores in [0,10].
//
// Higher is riskier. A category nobody reported on scores zero: no data is
// the best outcome, never the worst.
package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// DefaultCeiling is the weighted sum that maps to the maximum score of 10.
const DefaultCeiling = 15.0

// Weights maps severity to its contribution factor. Must decrease strictly
// from critical to info.
type Weights map[model.Severity]float64

// DefaultWeights returns the standard severity weighting.
func DefaultWeights() Weights {
	return Weights{
		model.SeverityCritical: 3.0,
		model.SeverityHigh:     2.0,
		model.SeverityMedium:   1.5,
		model.SeverityLow:      1.0,
		model.SeverityInfo:     0.5,
	}
}

// Options carries the externally configurable knobs. Zero values select the
// defaults.
type Options struct {
	Weights Weights
	Ceiling float64
}

// Score computes one CategoryScore per category present among the findings,
// ordered by descending score (ties broken by category name). Suppressed
// findings do not contribute. The computation is pure: identical input
// yields identical output.
func Score(findings []model.Finding, opts Options) ([]model.CategoryScore, error) {
	weights := opts.Weights
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	type accum struct {
		raw      float64
		findings []model.Finding
	}
	byCategory := make(map[string]*accum)
	order := make([]string, 0, 8)

	for _, f := range findings {
		if f.Suppressed {
			continue
		}
		category := strings.TrimSpace(f.Category)
		if category == "" {
			category = "general"
		}
		acc, ok := byCategory[category]
		if !ok {
			acc = &accum{}
			byCategory[category] = acc
			order = append(order, category)
		}
		acc.raw += weights.weightOf(f.Severity) * impact(f.Occurrences)
		acc.findings = append(acc.findings, f)
	}

	scores := make([]model.CategoryScore, 0, len(order))
	for _, category := range order {
		acc := byCategory[category]
		score := 10 * acc.raw / ceiling
		if score > 10 {
			score = 10
		}
		scores = append(scores, model.CategoryScore{
			Category: category,
			Score:    score,
			Findings: acc.findings,
		})
	}

	// Rank on the raw score; rounding is for display only.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Category < scores[j].Category
	})
	return scores, nil
}

// Lookup returns the score for a category, zero when the category has no
// findings.
func Lookup(scores []model.CategoryScore, category string) float64 {
	for _, s := range scores {
		if s.Category == category {
			return s.Score
		}
	}
	return 0
}

// Overall is the highest category score, zero for a clean run.
func Overall(scores []model.CategoryScore) float64 {
	max := 0.0
	for _, s := range scores {
		if s.Score > max {
			max = s.Score
		}
	}
	return max
}

func (w Weights) weightOf(sev model.Severity) float64 {
	if v, ok := w[sev]; ok {
		return v
	}
	return w[model.SeverityInfo]
}

// impact grows sub-linearly in the occurrence count so a single noisy
// pattern cannot drown out everything else.
func impact(occurrences int) float64 {
	if occurrences < 1 {
		occurrences = 1
	}
	return 1 + math.Log2(float64(occurrences))
}

func validateWeights(w Weights) error {
	prev := math.Inf(1)
	for _, sev := range model.AllSeverities {
		v, ok := w[sev]
		if !ok {
			return fmt.Errorf("scoring weights missing severity %s", sev)
		}
		if v <= 0 {
			return fmt.Errorf("scoring weight for %s must be positive, got %v", sev, v)
		}
		if v >= prev {
			return fmt.Errorf("scoring weights must decrease strictly from critical to info")
		}
		prev = v
	}
	return nil
}

// Package rules assembles the final guardrail list out of finding-derived
// constraints and the catalog baseline.
//
// Selection order is fixed: findings from risky categories first (highest
// category score first, most severe finding first, insertion order after
// that), then every catalog constraint. Duplicates collapse onto the
// first-seen form and the cap applies only after deduplication, so a noisy
// duplicate can never crowd a unique constraint out of the list.
package rules

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// DefaultThreshold is the category score at which finding constraints start
// making it into the rules list.
const DefaultThreshold = 5.0

// Options configures Build. A zero Threshold admits every category; a zero
// MaxRules leaves the list uncapped.
type Options struct {
	Threshold float64
	MaxRules  int
	Logger    *zap.Logger
}

// Build produces the ordered, deduplicated rule list. It is pure apart from
// logging: identical inputs yield byte-identical output.
func Build(findings []model.Finding, scores []model.CategoryScore, catalogConstraints []string, opts Options) []model.Rule {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	candidates := make([]model.Rule, 0, len(findings)+len(catalogConstraints))
	for _, category := range rankCategories(scores, opts.Threshold) {
		selected := findingsFor(findings, category)
		if len(selected) == 0 {
			continue
		}
		before := len(candidates)
		for _, f := range selected {
			for _, text := range f.Constraints {
				candidates = append(candidates, model.Rule{
					Text:       text,
					Category:   category,
					Provenance: model.ProvenanceFinding,
					PatternID:  f.PatternID,
				})
			}
		}
		log.Debug("including finding constraints",
			zap.String("category", category),
			zap.Int("constraints", len(candidates)-before))
	}
	for _, text := range catalogConstraints {
		candidates = append(candidates, model.Rule{
			Text:       text,
			Category:   "general",
			Provenance: model.ProvenanceCatalog,
		})
	}

	rules := dedup(candidates)
	deduped := len(rules)
	if opts.MaxRules > 0 && len(rules) > opts.MaxRules {
		rules = rules[:opts.MaxRules]
	}
	log.Info("rules assembled",
		zap.Int("candidates", len(candidates)),
		zap.Int("unique", deduped),
		zap.Int("final", len(rules)))
	return rules
}

// Texts flattens a rule list for consumers that only want the strings.
func Texts(rules []model.Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Text
	}
	return out
}

// rankCategories returns the categories scoring at or above the threshold,
// highest score first, ties broken by name so the order never depends on map
// iteration.
func rankCategories(scores []model.CategoryScore, threshold float64) []string {
	ranked := make([]model.CategoryScore, 0, len(scores))
	for _, s := range scores {
		if s.Score >= threshold {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Category < ranked[j].Category
	})
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.Category
	}
	return names
}

// findingsFor selects one category's findings ordered by severity, keeping
// insertion order within a severity band. Suppressed findings contribute
// nothing. Blank categories bucket as "general", matching the scorer.
func findingsFor(findings []model.Finding, category string) []model.Finding {
	selected := make([]model.Finding, 0, 4)
	for _, f := range findings {
		fc := strings.TrimSpace(f.Category)
		if fc == "" {
			fc = "general"
		}
		if f.Suppressed || fc != category {
			continue
		}
		selected = append(selected, f)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Severity.Rank() < selected[j].Severity.Rank()
	})
	return selected
}

// dedup collapses case-fold and whitespace variants onto the first-seen
// form. Blank constraints are dropped outright.
func dedup(candidates []model.Rule) []model.Rule {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.Rule, 0, len(candidates))
	for _, r := range candidates {
		text := strings.Join(strings.Fields(r.Text), " ")
		if text == "" {
			continue
		}
		key := cases.Fold().String(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.Text = text
		out = append(out, r)
	}
	return out
}

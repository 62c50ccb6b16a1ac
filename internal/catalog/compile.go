package catalog

import (
	"fmt"
	"regexp"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Compile prepares a catalog for the engine. Expressions are compiled with
// (?ms) so ^/$ anchor per line and . crosses lines, matching how catalog
// authors write block-level patterns. A pattern that fails to compile (or has
// an empty expression) is skipped with a warning; the rest of the catalog
// stays usable.
func Compile(c Catalog) (Compiled, []model.Warning) {
	out := Compiled{
		Language:         c.Language,
		AntiPatterns:     make([]CompiledPattern, 0, len(c.Patterns)),
		RequiredPatterns: make([]CompiledPattern, 0, 4),
		Rules:            c.Rules,
		Constraints:      c.Constraints,
		Categories:       c.Categories,
	}
	warnings := make([]model.Warning, 0)

	for _, p := range c.Patterns {
		if p.Regex == "" {
			warnings = append(warnings, model.Warning{
				Stage:   model.WarnPattern,
				Message: fmt.Sprintf("pattern %s skipped: empty expression", p.ID),
			})
			continue
		}
		expr, err := regexp.Compile("(?ms)" + p.Regex)
		if err != nil {
			warnings = append(warnings, model.Warning{
				Stage:   model.WarnPattern,
				Message: fmt.Sprintf("pattern %s skipped: %v", p.ID, err),
			})
			continue
		}
		compiled := CompiledPattern{Pattern: p, Expr: expr}
		switch p.Type {
		case model.KindRequiredPattern:
			out.RequiredPatterns = append(out.RequiredPatterns, compiled)
		default:
			out.AntiPatterns = append(out.AntiPatterns, compiled)
		}
	}

	return out, warnings
}

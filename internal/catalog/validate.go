package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Normalize trims and canonicalizes a catalog in place-of-value. Missing
// pattern type defaults to anti-pattern, missing severity to medium, missing
// category to "Code Quality" — the defaults a hand-written catalog is most
// likely to mean.
func Normalize(c Catalog) Catalog {
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))

	patterns := make([]Pattern, 0, len(c.Patterns))
	for _, p := range c.Patterns {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = p.ID
		}
		if kind, ok := model.ParsePatternKind(string(p.Type)); ok {
			p.Type = kind
		} else if strings.TrimSpace(string(p.Type)) == "" {
			p.Type = model.KindAntiPattern
		}
		if strings.TrimSpace(string(p.Severity)) == "" {
			p.Severity = model.SeverityMedium
		} else {
			p.Severity = model.ParseSeverity(string(p.Severity))
		}
		p.Category = strings.TrimSpace(p.Category)
		if p.Category == "" {
			p.Category = "Code Quality"
		}
		p.Description = strings.TrimSpace(p.Description)
		p.Regex = strings.TrimSpace(p.Regex)
		p.Constraint = strings.TrimSpace(p.Constraint)
		patterns = append(patterns, p)
	}
	c.Patterns = patterns

	c.Rules = cleanLines(c.Rules)
	c.Constraints = cleanLines(c.Constraints)

	if len(c.Categories) > 0 {
		cats := make(map[string]Category, len(c.Categories))
		for name, cat := range c.Categories {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			cat.Description = strings.TrimSpace(cat.Description)
			cat.Practices = cleanLines(cat.Practices)
			cats[name] = cat
		}
		c.Categories = cats
	}

	return c
}

// Validate reports structural problems that make the whole catalog unusable.
// Per-pattern expression problems are not validation errors; Compile skips
// those patterns individually.
func Validate(c Catalog) error {
	var errs []string

	if strings.TrimSpace(c.Language) == "" {
		errs = append(errs, "language is required")
	}

	seen := make(map[string]int, len(c.Patterns))
	for i, p := range c.Patterns {
		prefix := fmt.Sprintf("patterns[%d]", i)
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, prefix+".id is required")
			continue
		}
		if prev, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Sprintf("%s.id %q duplicates patterns[%d]", prefix, p.ID, prev))
		} else {
			seen[p.ID] = i
		}
		switch p.Type {
		case model.KindAntiPattern, model.KindRequiredPattern:
		default:
			errs = append(errs, fmt.Sprintf("%s.type must be anti-pattern|required-pattern, got %q", prefix, p.Type))
		}
		if !p.Severity.Valid() {
			errs = append(errs, fmt.Sprintf("%s.severity must be critical|high|medium|low|info, got %q", prefix, p.Severity))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func cleanLines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

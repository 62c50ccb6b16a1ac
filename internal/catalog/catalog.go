// Package catalog loads and validates the per-language pattern catalogs the
// scan pipeline matches against.
package catalog

import (
	"regexp"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

// Pattern is one catalog entry. Expression syntax is Go regexp; expressions
// are compiled with multiline and dot-matches-newline flags.
type Pattern struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Type        model.PatternKind `yaml:"type,omitempty" json:"type,omitempty"`
	Severity    model.Severity    `yaml:"severity,omitempty" json:"severity,omitempty"`
	Category    string            `yaml:"category,omitempty" json:"category,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Regex       string            `yaml:"regex" json:"regex"`
	Constraint  string            `yaml:"constraint,omitempty" json:"constraint,omitempty"`
}

// Category carries the baseline practice text the instructions generator
// renders per category.
type Category struct {
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Practices   []string `yaml:"practices,omitempty" json:"practices,omitempty"`
}

// Catalog is the full practice set for one language: patterns to match plus
// the flat baseline rules/constraints and category practices. Language is set
// by the loader from the file name, never from file content.
type Catalog struct {
	Language    string              `yaml:"-" json:"language"`
	Patterns    []Pattern           `yaml:"patterns" json:"patterns"`
	Rules       []string            `yaml:"rules,omitempty" json:"rules,omitempty"`
	Constraints []string            `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Categories  map[string]Category `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// CompiledPattern pairs a pattern with its compiled expression.
type CompiledPattern struct {
	Pattern
	Expr *regexp.Regexp
}

// Compiled is a catalog ready for the engine. Anti-patterns and required
// patterns are split so the two evaluation algorithms cannot be handed the
// wrong set.
type Compiled struct {
	Language         string
	AntiPatterns     []CompiledPattern
	RequiredPatterns []CompiledPattern
	Rules            []string
	Constraints      []string
	Categories       map[string]Category
}

// PatternCount is the number of usable (compiled) patterns.
func (c Compiled) PatternCount() int {
	return len(c.AntiPatterns) + len(c.RequiredPatterns)
}

var languageExtensions = map[string][]string{
	"dotnet": {".cs", ".vb", ".fs"},
	"node":   {".js", ".ts", ".jsx", ".tsx"},
	"python": {".py"},
	"java":   {".java"},
	"go":     {".go"},
	"rust":   {".rs"},
}

// ExtensionsFor returns the source extensions scanned for a language, nil
// when the language has no extension mapping.
func ExtensionsFor(language string) []string {
	exts, ok := languageExtensions[language]
	if !ok {
		return nil
	}
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

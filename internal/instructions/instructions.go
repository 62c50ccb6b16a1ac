// Package instructions turns a finished scan into a GitHub Copilot
// instructions file, either through the OpenAI API or a deterministic
// template when no key is available.
package instructions

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KumVivek/copilot-instruction-agent/internal/catalog"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/redact"
	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
	"github.com/KumVivek/copilot-instruction-agent/internal/sanitize"
)

// DefaultPath is where GitHub Copilot picks the file up.
const DefaultPath = ".github/copilot-instructions.md"

const (
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.3
	defaultMaxTokens   = 2000
	defaultTimeout     = 60 * time.Second

	maxPromptRules      = 40
	maxPromptPractices  = 10
	maxPromptCategories = 5
)

const systemPrompt = "You are an expert at writing GitHub Copilot instruction files. Generate clear, enforceable rules only."

// Options control instruction generation. A missing API key or Skip=true
// selects the deterministic template.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Skip        bool
	Logger      *zap.Logger
}

// Result is the generated instructions content plus how it was produced.
type Result struct {
	Content string
	LLMUsed bool
	Model   string
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.Model) == "" {
		o.Model = defaultModel
	}
	if o.Temperature <= 0 {
		o.Temperature = defaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Generate builds the instructions content. The LLM path degrades to the
// template with a warning instead of failing the run.
func Generate(ctx context.Context, stack model.Stack, scores []model.CategoryScore, rules []model.Rule, cat catalog.Catalog, opts Options) (Result, []model.Warning) {
	opts = opts.normalized()

	if opts.Skip || strings.TrimSpace(opts.APIKey) == "" {
		reason := "llm disabled"
		if !opts.Skip {
			reason = "no api key"
		}
		opts.Logger.Debug("generating instructions from template", zap.String("reason", reason))
		return Result{Content: Render(stack, scores, rules, cat)}, nil
	}

	prompt := buildPrompt(stack, rules, cat)
	content, err := callChatCompletions(ctx, opts, systemPrompt, prompt)
	if err != nil {
		opts.Logger.Warn("instruction generation fell back to template", zap.Error(err))
		warn := model.Warning{
			Stage:   model.WarnInstructions,
			Message: fmt.Sprintf("llm generation failed, used template: %v", err),
		}
		return Result{Content: Render(stack, scores, rules, cat)}, []model.Warning{warn}
	}

	opts.Logger.Info("generated instructions",
		zap.String("model", opts.Model),
		zap.Int("rules", len(rules)))
	return Result{Content: strings.TrimSpace(content) + "\n", LLMUsed: true, Model: opts.Model}, nil
}

// WriteFile persists the instructions, creating the .github directory when
// needed.
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if _, err := safefile.EnsureDir(dir, 0o755); err != nil {
			return fmt.Errorf("create instructions dir: %w", err)
		}
	}
	if err := safefile.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write instructions: %w", err)
	}
	return nil
}

func buildPrompt(stack model.Stack, rules []model.Rule, cat catalog.Catalog) string {
	var b strings.Builder

	language := stack.Language
	if language == "" {
		language = "Unknown"
	}
	b.WriteString(fmt.Sprintf("Tech stack: %s\n", promptLine(stackSummary(stack))))

	b.WriteString("\nRules and constraints to enforce (based on code analysis):\n")
	if len(rules) == 0 {
		b.WriteString("None specified\n")
	} else {
		for i, r := range rules {
			if i >= maxPromptRules {
				break
			}
			b.WriteString("- " + promptLine(r.Text) + "\n")
		}
	}

	if len(cat.Rules) > 0 {
		b.WriteString(fmt.Sprintf("\nBest practices for %s:\n", language))
		for i, r := range cat.Rules {
			if i >= maxPromptPractices {
				break
			}
			b.WriteString("- " + promptLine(r) + "\n")
		}
	}

	if len(cat.Categories) > 0 {
		b.WriteString("\nKey practice categories:\n")
		for i, name := range sortedCategoryNames(cat) {
			if i >= maxPromptCategories {
				break
			}
			desc := cat.Categories[name].Description
			if desc == "" {
				desc = name
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", name, promptLine(desc)))
		}
	}

	b.WriteString(fmt.Sprintf(`
Generate a GitHub Copilot instructions file (.github/copilot-instructions.md format).
Requirements:
- No explanations or commentary
- Only enforceable rules and constraints
- Clear, actionable directives
- Format as proper markdown
- Focus on preventing the issues found in the codebase
- Incorporate the best practices for %s
- Be specific to the %s stack and framework patterns
- Prioritize critical security and architectural constraints
`, language, language))

	return b.String()
}

// Render is the deterministic template used without an LLM. Category
// sections are ordered riskiest first so the most pressing guidance leads.
func Render(stack model.Stack, scores []model.CategoryScore, rules []model.Rule, cat catalog.Catalog) string {
	var b strings.Builder

	b.WriteString("# GitHub Copilot Instructions\n\n")
	b.WriteString(fmt.Sprintf("*Generated by copilot-agent for %s projects.*\n\n", stackSummary(stack)))

	if len(rules) > 0 {
		b.WriteString("## Rules & Constraints\n\n")
		for _, r := range rules {
			b.WriteString("- " + promptLine(r.Text) + "\n")
		}
		b.WriteString("\n")
	}

	for _, name := range categoriesByRisk(scores, cat) {
		entry := cat.Categories[name]
		if len(entry.Practices) == 0 && entry.Description == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("## %s\n\n", titleCase(name)))
		if entry.Description != "" {
			b.WriteString(promptLine(entry.Description) + "\n\n")
		}
		for _, p := range entry.Practices {
			b.WriteString("- " + promptLine(p) + "\n")
		}
		if len(entry.Practices) > 0 {
			b.WriteString("\n")
		}
	}

	if len(cat.Rules) > 0 {
		b.WriteString("## General Practices\n\n")
		for _, r := range cat.Rules {
			b.WriteString("- " + promptLine(r) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	b.WriteString("*This file is generated. Re-run `copilot-agent scan` after significant changes.*\n")

	return b.String()
}

// categoriesByRisk orders catalog categories by their score descending,
// unscored ones after, alphabetical within ties.
func categoriesByRisk(scores []model.CategoryScore, cat catalog.Catalog) []string {
	scoreFor := make(map[string]float64, len(scores))
	for _, cs := range scores {
		scoreFor[cs.Category] = cs.Score
	}
	names := sortedCategoryNames(cat)
	sort.SliceStable(names, func(i, j int) bool {
		si, iok := scoreFor[names[i]]
		sj, jok := scoreFor[names[j]]
		if iok != jok {
			return iok
		}
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})
	return names
}

func sortedCategoryNames(cat catalog.Catalog) []string {
	names := make([]string, 0, len(cat.Categories))
	for name := range cat.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stackSummary(stack model.Stack) string {
	label := stack.Label
	if label == "" {
		label = stack.Language
	}
	if label == "" {
		label = "Unknown"
	}
	out := sanitize.PathInline(label)
	if len(stack.Frameworks) > 0 {
		clean := make([]string, 0, len(stack.Frameworks))
		for _, fw := range stack.Frameworks {
			if fw = sanitize.PathInline(fw); fw != "" {
				clean = append(clean, fw)
			}
		}
		if len(clean) > 0 {
			out += " (" + strings.Join(clean, ", ") + ")"
		}
	}
	return out
}

// promptLine flattens and masks one line of text bound for a prompt or the
// generated file.
func promptLine(s string) string {
	return redact.Mask(sanitize.PathInline(s))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(s), "-", " "))
}

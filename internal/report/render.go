// Package report renders a scan into its artifact forms: markdown report,
// JSON dump, SARIF export and the terminal summary. Every renderer works on
// a redacted copy of the report; secret material never reaches an artifact.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KumVivek/copilot-instruction-agent/internal/badge"
	"github.com/KumVivek/copilot-instruction-agent/internal/model"
	"github.com/KumVivek/copilot-instruction-agent/internal/redact"
	"github.com/KumVivek/copilot-instruction-agent/internal/risk"
	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
)

// evidencePreview caps how many evidence locations a report line shows.
// Occurrence counts stay exact regardless.
const evidencePreview = 3

// Boundaries on the 0-10 risk scale for status icons and recommendations.
// High numbers are risky.
const (
	criticalFloor = 7.0
	warningFloor  = 5.0
)

// Redacted returns a copy of the report with secret-bearing text masked.
// The artifact writers here apply it themselves; other persistence paths
// (run history) call it before storing report payloads.
func Redacted(rep model.ScanReport) model.ScanReport {
	return redactReport(rep)
}

func WriteJSON(path string, rep model.ScanReport) error {
	rep = redactReport(rep)
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scan report: %w", err)
	}
	if err := safefile.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	return nil
}

func WriteMarkdown(path string, rep model.ScanReport) error {
	rep = redactReport(rep)
	content := RenderMarkdown(rep)
	if err := safefile.WriteFileAtomic(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write report markdown: %w", err)
	}
	return nil
}

func RenderMarkdown(rep model.ScanReport) string {
	var b bytes.Buffer

	b.WriteString("# Copilot Agent Analysis Report\n\n")
	b.WriteString(fmt.Sprintf("- Run: `%s`\n", rep.Meta.RunID))
	b.WriteString(fmt.Sprintf("- Root: `%s`\n", sanitizeInline(rep.Meta.Root)))
	b.WriteString(fmt.Sprintf("- Duration: `%d ms`\n", rep.Meta.DurationMS))
	b.WriteString(fmt.Sprintf("- Files: %d scanned, %d skipped\n", rep.Meta.FilesScanned, rep.Meta.FilesSkipped))
	if rep.Meta.LLMUsed && strings.TrimSpace(rep.Meta.LLMModel) != "" {
		b.WriteString(fmt.Sprintf("- Instructions model: `%s`\n", sanitizeInline(rep.Meta.LLMModel)))
	}
	b.WriteString("\n")

	b.WriteString("## Detected Stack\n\n")
	b.WriteString(fmt.Sprintf("- **Language**: %s\n", stackLabel(rep.Stack)))
	if len(rep.Stack.Frameworks) > 0 {
		b.WriteString(fmt.Sprintf("- **Frameworks**: %s\n", strings.Join(rep.Stack.Frameworks, ", ")))
	}
	if len(rep.Stack.BuildFiles) > 0 {
		b.WriteString(fmt.Sprintf("- **Build files**: `%s`\n", strings.Join(rep.Stack.BuildFiles, "`, `")))
	}
	b.WriteString("\n")

	b.WriteString("## Risk Scores\n\n")
	if len(rep.CategoryScores) > 0 {
		overall := risk.Overall(rep.CategoryScores)
		grade, _ := badge.Grade(overall)
		b.WriteString(fmt.Sprintf("Overall: **%s** (grade %s)\n\n", score10(overall), grade))
		b.WriteString("| Category | Risk Score |\n")
		b.WriteString("|----------|------------|\n")
		for _, cs := range rep.CategoryScores {
			b.WriteString(fmt.Sprintf("| %s | %s %s |\n", cs.Category, score10(cs.Score), statusIcon(cs.Score)))
		}
	} else {
		b.WriteString("No risk scores calculated.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Findings Summary\n\n")
	if rep.SuppressedCount > 0 {
		b.WriteString(fmt.Sprintf("Total findings: %d (%d suppressed)\n\n", len(rep.Findings), rep.SuppressedCount))
	} else {
		b.WriteString(fmt.Sprintf("Total findings: %d\n\n", len(rep.Findings)))
	}
	if len(rep.Findings) > 0 {
		b.WriteString(fmt.Sprintf("Severity: critical=%d, high=%d, medium=%d, low=%d, info=%d\n\n",
			rep.CountsBySeverity[model.SeverityCritical],
			rep.CountsBySeverity[model.SeverityHigh],
			rep.CountsBySeverity[model.SeverityMedium],
			rep.CountsBySeverity[model.SeverityLow],
			rep.CountsBySeverity[model.SeverityInfo],
		))
	}

	byCategory := map[string][]model.Finding{}
	for _, f := range rep.Findings {
		cat := categoryOrGeneral(f.Category)
		byCategory[cat] = append(byCategory[cat], f)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		b.WriteString(fmt.Sprintf("### %s\n\n", cat))
		for _, f := range byCategory[cat] {
			b.WriteString(fmt.Sprintf("- **%s** (%s)\n", f.Name, f.Severity.Label()))
			b.WriteString(fmt.Sprintf("  - Occurrences: %d\n", f.Occurrences))
			if len(f.Evidence) > 0 {
				b.WriteString(fmt.Sprintf("  - Evidence: %s\n", evidenceList(f.Evidence)))
			}
			if len(f.Constraints) > 0 {
				b.WriteString(fmt.Sprintf("  - Suggested constraints: %d\n", len(f.Constraints)))
			}
			if f.Suppressed {
				reason := strings.TrimSpace(f.SuppressionReason)
				if reason == "" {
					reason = "no reason recorded"
				}
				b.WriteString(fmt.Sprintf("  - Suppressed: %s\n", sanitizeInline(reason)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Recommendations\n\n")
	var risky []model.CategoryScore
	for _, cs := range rep.CategoryScores {
		if cs.Score >= warningFloor {
			risky = append(risky, cs)
		}
	}
	if len(risky) > 0 {
		b.WriteString("The following categories require immediate attention:\n\n")
		for _, cs := range risky {
			b.WriteString(fmt.Sprintf("- %s (risk score: %s)\n", cs.Category, score10(cs.Score)))
		}
	} else {
		b.WriteString("No high-risk categories detected. Continue monitoring code quality.\n")
	}
	b.WriteString("\n")

	if len(rep.Rules) > 0 {
		b.WriteString("## Instruction Rules\n\n")
		for i, r := range rep.Rules {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Text))
		}
		b.WriteString("\n")
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range rep.Warnings {
			b.WriteString(fmt.Sprintf("- [%s] %s\n", w.Stage, sanitizeInline(w.Message)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Lipgloss styles for the terminal summary.
var (
	styleCritical = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	styleHigh     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMedium   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleLow      = lipgloss.NewStyle().Faint(true)
	styleInfo     = lipgloss.NewStyle().Faint(true)
	styleEvidence = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleMuted    = lipgloss.NewStyle().Faint(true)
	styleGood     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleBad      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Console formats the scan as color-coded, severity-sorted terminal output.
// When verbose is true, evidence locations are included for each finding.
func Console(rep model.ScanReport, verbose bool) string {
	rep = redactReport(rep)

	var b strings.Builder

	// Summary header.
	var parts []string
	for _, sev := range model.AllSeverities {
		if c := rep.CountsBySeverity[sev]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, sev))
		}
	}
	header := fmt.Sprintf("copilot-agent scan complete — %d findings", len(rep.Findings))
	if len(parts) > 0 {
		header += " (" + strings.Join(parts, ", ") + ")"
	}
	if rep.SuppressedCount > 0 {
		header += fmt.Sprintf(", %d suppressed", rep.SuppressedCount)
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  stack  %s\n", consoleStack(rep.Stack)))
	overall := risk.Overall(rep.CategoryScores)
	grade, _ := badge.Grade(overall)
	b.WriteString(fmt.Sprintf("  risk   %s (grade %s)\n", styleScore(overall).Render(score10(overall)), grade))
	for _, cs := range rep.CategoryScores {
		b.WriteString(fmt.Sprintf("    %-16s %s\n", cs.Category, styleScore(cs.Score).Render(score10(cs.Score))))
	}
	b.WriteString("\n")

	// Findings, most severe first.
	sorted := make([]model.Finding, len(rep.Findings))
	copy(sorted, rep.Findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})
	for _, f := range sorted {
		meta := fmt.Sprintf("%s, %d occurrence(s)", categoryOrGeneral(f.Category), f.Occurrences)
		if f.Suppressed {
			meta += ", suppressed"
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n", styleSeverity(f.Severity), f.Name, styleMuted.Render(meta)))
		if verbose && len(f.Evidence) > 0 {
			b.WriteString("    " + styleEvidence.Render(evidencePaths(f.Evidence)) + "\n")
		}
	}
	if len(sorted) > 0 {
		b.WriteString("\n")
	}

	if len(rep.Rules) > 0 {
		b.WriteString(fmt.Sprintf("  %d instruction rule(s) prepared.\n", len(rep.Rules)))
	}
	if len(rep.Warnings) > 0 {
		b.WriteString(styleWarn.Render(fmt.Sprintf("  %d warning(s), see the report for details.", len(rep.Warnings))))
		b.WriteString("\n")
	}

	return b.String()
}

// redactReport masks secret material in every free-text field before a
// report is rendered or persisted.
func redactReport(in model.ScanReport) model.ScanReport {
	if len(in.Warnings) > 0 {
		warnings := make([]model.Warning, 0, len(in.Warnings))
		for _, w := range in.Warnings {
			w.Message = redact.Mask(w.Message)
			warnings = append(warnings, w)
		}
		in.Warnings = warnings
	}
	in.Findings = redactFindings(in.Findings)
	if len(in.CategoryScores) > 0 {
		scores := make([]model.CategoryScore, 0, len(in.CategoryScores))
		for _, cs := range in.CategoryScores {
			cs.Findings = redactFindings(cs.Findings)
			scores = append(scores, cs)
		}
		in.CategoryScores = scores
	}
	if len(in.Rules) > 0 {
		rules := make([]model.Rule, 0, len(in.Rules))
		for _, r := range in.Rules {
			r.Text = redact.Mask(r.Text)
			rules = append(rules, r)
		}
		in.Rules = rules
	}
	return in
}

func redactFindings(in []model.Finding) []model.Finding {
	if len(in) == 0 {
		return in
	}
	out := make([]model.Finding, 0, len(in))
	for _, f := range in {
		f.Constraints = redact.MaskAll(f.Constraints)
		f.SuppressionReason = redact.Mask(f.SuppressionReason)
		if len(f.Evidence) > 0 {
			ev := make([]model.Location, 0, len(f.Evidence))
			for _, loc := range f.Evidence {
				loc.Path = redact.Mask(loc.Path)
				ev = append(ev, loc)
			}
			f.Evidence = ev
		}
		out = append(out, f)
	}
	return out
}

func score10(v float64) string {
	return fmt.Sprintf("%.2f/10", model.CategoryScore{Score: v}.Rounded())
}

func statusIcon(score float64) string {
	switch {
	case score >= criticalFloor:
		return "🔴 Critical"
	case score >= warningFloor:
		return "🟡 Warning"
	default:
		return "🟢 Good"
	}
}

func styleScore(score float64) lipgloss.Style {
	switch {
	case score >= criticalFloor:
		return styleBad
	case score >= warningFloor:
		return styleWarn
	default:
		return styleGood
	}
}

func styleSeverity(sev model.Severity) string {
	label := sev.Label()
	switch sev {
	case model.SeverityCritical:
		return styleCritical.Render(label)
	case model.SeverityHigh:
		return styleHigh.Render(label)
	case model.SeverityMedium:
		return styleMedium.Render(label)
	case model.SeverityLow:
		return styleLow.Render(label)
	case model.SeverityInfo:
		return styleInfo.Render(label)
	default:
		return label
	}
}

func stackLabel(s model.Stack) string {
	if label := strings.TrimSpace(s.Label); label != "" {
		return label
	}
	if lang := strings.TrimSpace(s.Language); lang != "" {
		return lang
	}
	return "Unknown"
}

func consoleStack(s model.Stack) string {
	label := stackLabel(s)
	if len(s.Frameworks) > 0 {
		label += " (" + strings.Join(s.Frameworks, ", ") + ")"
	}
	return label
}

func categoryOrGeneral(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return "general"
	}
	return category
}

func formatLocation(loc model.Location) string {
	if loc.Line > 0 {
		return fmt.Sprintf("%s:%d", loc.Path, loc.Line)
	}
	return loc.Path
}

func evidenceList(evidence []model.Location) string {
	refs := make([]string, 0, evidencePreview)
	for i, loc := range evidence {
		if i == evidencePreview {
			break
		}
		refs = append(refs, "`"+formatLocation(loc)+"`")
	}
	return strings.Join(refs, ", ")
}

func evidencePaths(evidence []model.Location) string {
	refs := make([]string, 0, evidencePreview)
	for i, loc := range evidence {
		if i == evidencePreview {
			break
		}
		refs = append(refs, formatLocation(loc))
	}
	return strings.Join(refs, ", ")
}

func sanitizeInline(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}

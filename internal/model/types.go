package model

import (
	"strings"
	"time"
)

// Severity levels, highest first. Stored lowercase; catalog input is
// normalized on load.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

var AllSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// ParseSeverity normalizes free-form severity text. Unknown values map to
// info so a sloppy catalog can never escalate a finding by accident.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info":
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// Rank orders severities for sorting: critical is 0, info is 4.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	default:
		return false
	}
}

// Label is the uppercase report form ("HIGH").
func (s Severity) Label() string {
	return strings.ToUpper(string(s))
}

// PatternKind is the closed set of catalog pattern types. The two kinds are
// evaluated by structurally different algorithms: an anti-pattern match is a
// violation, a required pattern's absence across the scanned scope is.
type PatternKind string

const (
	KindAntiPattern     PatternKind = "anti-pattern"
	KindRequiredPattern PatternKind = "required-pattern"
)

func ParsePatternKind(s string) (PatternKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindAntiPattern), "antipattern", "anti_pattern":
		return KindAntiPattern, true
	case string(KindRequiredPattern), "requiredpattern", "required_pattern":
		return KindRequiredPattern, true
	default:
		return "", false
	}
}

// Provenance records whether a rule came from an observed finding or from the
// catalog baseline.
type Provenance string

const (
	ProvenanceFinding Provenance = "finding"
	ProvenanceCatalog Provenance = "catalog"
)

// Location points at evidence inside the scanned tree. Line is 1-based and 0
// when unknown.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
}

// Finding is one detected violation or gap. Produced exactly once per
// (analyzer, pattern) pair per run and never mutated afterwards. Occurrences
// is exact even when Evidence is capped.
type Finding struct {
	PatternID   string      `json:"pattern_id"`
	Name        string      `json:"name"`
	Severity    Severity    `json:"severity"`
	Category    string      `json:"category"`
	Kind        PatternKind `json:"kind"`
	Occurrences int         `json:"occurrences"`
	Evidence    []Location  `json:"evidence,omitempty"`
	Constraints []string    `json:"constraints,omitempty"`
	Analyzer    string      `json:"analyzer"`

	Suppressed        bool   `json:"suppressed,omitempty"`
	SuppressionReason string `json:"suppression_reason,omitempty"`
}

// CategoryScore is a derived artifact: risk in [0,10] for one category plus
// the findings that contributed. Score is unrounded; use Rounded for display.
type CategoryScore struct {
	Category string    `json:"category"`
	Score    float64   `json:"score"`
	Findings []Finding `json:"findings,omitempty"`
}

// Rounded truncates to two decimals for presentation. Ranking always uses the
// raw Score.
func (c CategoryScore) Rounded() float64 {
	return float64(int64(c.Score*100+0.5)) / 100
}

// Rule is one synthesized guardrail line. The rules list is ordered, first
// occurrence wins on dedup, and is stable across identical runs.
type Rule struct {
	Text       string     `json:"text"`
	Category   string     `json:"category"`
	Provenance Provenance `json:"provenance"`
	PatternID  string     `json:"pattern_id,omitempty"`
}

// Warning stages, matching the places a run can degrade without aborting.
const (
	WarnCatalog      = "catalog"
	WarnPattern      = "pattern"
	WarnAnalyzer     = "analyzer"
	WarnFile         = "file"
	WarnSuppress     = "suppress"
	WarnScoring      = "scoring"
	WarnInstructions = "instructions"
	WarnArtifact     = "artifact"
)

// Warning is a recoverable degradation attached to the run. Warnings are
// reported, never swallowed.
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Stack describes the detected project stack.
type Stack struct {
	Language   string         `json:"language"`
	Label      string         `json:"label"`
	Frameworks []string       `json:"frameworks,omitempty"`
	BuildFiles []string       `json:"build_files,omitempty"`
	FilesByExt map[string]int `json:"files_by_ext,omitempty"`
}

// RunMeta carries run identity and scan counters.
type RunMeta struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMS   int64     `json:"duration_ms"`
	Root         string    `json:"root"`
	Language     string    `json:"language"`
	Analyzers    []string  `json:"analyzers,omitempty"`
	Patterns     int       `json:"patterns"`
	FilesScanned int       `json:"files_scanned"`
	FilesSkipped int       `json:"files_skipped"`
	Workers      int       `json:"workers"`
	LLMUsed      bool      `json:"llm_used"`
	LLMModel     string    `json:"llm_model,omitempty"`
}

// ScanReport is the pipeline's final artifact, consumed by the report
// renderers, the badge writer and the history store.
type ScanReport struct {
	Meta             RunMeta          `json:"meta"`
	Stack            Stack            `json:"stack"`
	Findings         []Finding        `json:"findings"`
	SuppressedCount  int              `json:"suppressed_count,omitempty"`
	CategoryScores   []CategoryScore  `json:"category_scores"`
	Rules            []Rule           `json:"rules"`
	CountsBySeverity map[Severity]int `json:"counts_by_severity"`
	CountsByCategory map[string]int   `json:"counts_by_category"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// CountBySeverity tallies findings into the full severity map so report
// tables always show every row.
func CountBySeverity(findings []Finding) map[Severity]int {
	m := map[Severity]int{
		SeverityCritical: 0, SeverityHigh: 0, SeverityMedium: 0, SeverityLow: 0, SeverityInfo: 0,
	}
	for _, f := range findings {
		sev := f.Severity
		if !sev.Valid() {
			sev = SeverityInfo
		}
		m[sev]++
	}
	return m
}

// CountByCategory tallies findings per category, folding empty categories
// into "general".
func CountByCategory(findings []Finding) map[string]int {
	m := map[string]int{}
	for _, f := range findings {
		cat := strings.TrimSpace(f.Category)
		if cat == "" {
			cat = "general"
		}
		m[cat]++
	}
	return m
}

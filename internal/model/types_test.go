package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"  High ", SeverityHigh},
		{"medium", SeverityMedium},
		{"moderate", SeverityMedium},
		{"LOW", SeverityLow},
		{"info", SeverityInfo},
		{"", SeverityInfo},
		{"banana", SeverityInfo},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseSeverity(tc.in); got != tc.want {
				t.Fatalf("ParseSeverity(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSeverityRankIsStrictlyOrdered(t *testing.T) {
	prev := -1
	for _, sev := range AllSeverities {
		rank := sev.Rank()
		if rank <= prev {
			t.Fatalf("severity %q rank %d not strictly greater than previous %d", sev, rank, prev)
		}
		prev = rank
	}
	if SeverityCritical.Rank() != 0 {
		t.Fatalf("critical must rank 0, got %d", SeverityCritical.Rank())
	}
}

func TestParsePatternKind(t *testing.T) {
	cases := []struct {
		in   string
		want PatternKind
		ok   bool
	}{
		{"anti-pattern", KindAntiPattern, true},
		{"Anti-Pattern", KindAntiPattern, true},
		{"anti_pattern", KindAntiPattern, true},
		{"required-pattern", KindRequiredPattern, true},
		{"required_pattern", KindRequiredPattern, true},
		{"pattern", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParsePatternKind(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ParsePatternKind(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestCategoryScoreRounded(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{0, 0},
		{3.14159, 3.14},
		{3.145, 3.15},
		{9.999, 10},
	}
	for _, tc := range cases {
		got := CategoryScore{Score: tc.score}.Rounded()
		if got != tc.want {
			t.Fatalf("Rounded(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestFindingJSONShape(t *testing.T) {
	f := Finding{
		PatternID:   "ARCH-001",
		Name:        "Controller accesses DbContext directly",
		Severity:    SeverityHigh,
		Category:    "Architecture",
		Kind:        KindAntiPattern,
		Occurrences: 3,
		Evidence:    []Location{{Path: "Controllers/FooController.cs", Line: 12}},
		Constraints: []string{"Controllers must delegate data access to services"},
		Analyzer:    "catalog",
	}

	payload, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal finding: %v", err)
	}
	jsonStr := string(payload)
	for _, want := range []string{
		`"pattern_id":"ARCH-001"`,
		`"severity":"high"`,
		`"kind":"anti-pattern"`,
		`"occurrences":3`,
		`"evidence":[{"path":"Controllers/FooController.cs","line":12}]`,
		`"analyzer":"catalog"`,
	} {
		if !strings.Contains(jsonStr, want) {
			t.Fatalf("expected JSON to include %s, got %s", want, jsonStr)
		}
	}
	for _, omitted := range []string{`"suppressed":`, `"suppression_reason":`} {
		if strings.Contains(jsonStr, omitted) {
			t.Fatalf("expected JSON to omit %s, got %s", omitted, jsonStr)
		}
	}
}

func TestCountBySeverityAlwaysHasAllRows(t *testing.T) {
	got := CountBySeverity(nil)
	if len(got) != len(AllSeverities) {
		t.Fatalf("expected %d severity rows, got %d", len(AllSeverities), len(got))
	}
	for _, sev := range AllSeverities {
		if got[sev] != 0 {
			t.Fatalf("empty input should count 0 for %q, got %d", sev, got[sev])
		}
	}

	got = CountBySeverity([]Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: Severity("bogus")},
	})
	if got[SeverityHigh] != 2 {
		t.Fatalf("expected 2 high, got %d", got[SeverityHigh])
	}
	if got[SeverityInfo] != 1 {
		t.Fatalf("invalid severity should fold into info, got %d", got[SeverityInfo])
	}
}

func TestCountByCategoryFoldsEmptyIntoGeneral(t *testing.T) {
	got := CountByCategory([]Finding{
		{Category: "Security"},
		{Category: "Security"},
		{Category: "  "},
	})
	if got["Security"] != 2 {
		t.Fatalf("expected 2 Security, got %d", got["Security"])
	}
	if got["general"] != 1 {
		t.Fatalf("expected blank category to count as general, got %d", got["general"])
	}
}

package suppress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

var testNow = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func suppressFinding(id, category string, sev model.Severity, paths ...string) model.Finding {
	f := model.Finding{
		PatternID:   id,
		Name:        "finding " + id,
		Severity:    sev,
		Category:    category,
		Kind:        model.KindAntiPattern,
		Occurrences: 1,
	}
	for _, p := range paths {
		f.Evidence = append(f.Evidence, model.Location{Path: p, Line: 1})
	}
	return f
}

func TestLoad_Missing(t *testing.T) {
	rules, err := Load("/nonexistent/path/suppressions.yaml")
	if err != nil {
		t.Fatalf("expected nil error for missing file, got: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected empty rules, got %d", len(rules))
	}
}

func TestLoad_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	content := `suppressions:
  - pattern: ARCH-001
    files: "tests/**"
    reason: "Test fixtures use a fake DbContext"
    expires: "2099-01-01"
  - pattern: "ARCH-00*"
    category: Architecture
    reason: "Legacy module scheduled for rewrite"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Pattern != "ARCH-001" || rules[0].Files != "tests/**" {
		t.Errorf("rule 0 parsed wrong: %+v", rules[0])
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	if err := os.WriteFile(path, []byte(""), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected 0 rules, got %d", len(rules))
	}
}

func TestLoad_MissingReasonRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppressions.yaml")
	content := "suppressions:\n  - pattern: ARCH-001\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "reason is required") {
		t.Fatalf("expected reason-required error, got %v", err)
	}
}

func TestRule_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires string
		want    bool
	}{
		{"no expiry", "", false},
		{"future", "2099-01-01", false},
		{"past", "2020-01-01", true},
		{"invalid format", "not-a-date", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Rule{Expires: tc.expires}
			if got := r.IsExpired(testNow); got != tc.want {
				t.Errorf("IsExpired(%q) = %v, want %v", tc.expires, got, tc.want)
			}
		})
	}
}

func TestApply_PatternGlob(t *testing.T) {
	findings := []model.Finding{
		suppressFinding("ARCH-001", "Architecture", model.SeverityHigh, "Controllers/OrdersController.cs"),
		suppressFinding("SEC-002", "Security", model.SeverityCritical, "Program.cs"),
	}
	rules := []Rule{{Pattern: "ARCH-*", Reason: "architecture debt accepted for Q1"}}

	out, suppressed := Apply(findings, rules, testNow)
	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
	if !out[0].Suppressed || out[0].SuppressionReason != "architecture debt accepted for Q1" {
		t.Errorf("ARCH finding not suppressed: %+v", out[0])
	}
	if out[1].Suppressed {
		t.Errorf("SEC finding must stay active")
	}
}

func TestApply_FileGlobNeedsEvidenceMatch(t *testing.T) {
	findings := []model.Finding{
		suppressFinding("ARCH-003", "Architecture", model.SeverityMedium, "tests/Fixtures/FakeService.cs"),
		suppressFinding("ARCH-003", "Architecture", model.SeverityMedium, "src/OrderService.cs"),
	}
	rules := []Rule{{Pattern: "ARCH-003", Files: "tests/**", Reason: "fixtures instantiate fakes directly"}}

	out, suppressed := Apply(findings, rules, testNow)
	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
	if !out[0].Suppressed || out[1].Suppressed {
		t.Errorf("only the tests/ finding should be suppressed: %+v", out)
	}
}

func TestApply_ExpiredRuleIgnored(t *testing.T) {
	findings := []model.Finding{suppressFinding("ARCH-001", "Architecture", model.SeverityHigh, "a.cs")}
	rules := []Rule{{Pattern: "ARCH-001", Reason: "expired", Expires: "2020-01-01"}}

	out, suppressed := Apply(findings, rules, testNow)
	if suppressed != 0 || out[0].Suppressed {
		t.Fatalf("expired rule must not suppress: %+v", out[0])
	}
}

func TestApply_BareWildcardRejected(t *testing.T) {
	findings := []model.Finding{suppressFinding("ARCH-001", "Architecture", model.SeverityHigh, "a.cs")}
	rules := []Rule{{Pattern: "*", Reason: "silence everything"}}

	_, suppressed := Apply(findings, rules, testNow)
	if suppressed != 0 {
		t.Fatalf("bare wildcard must match nothing, suppressed %d", suppressed)
	}
}

func TestApply_EmptyRuleMatchesNothing(t *testing.T) {
	findings := []model.Finding{suppressFinding("ARCH-001", "Architecture", model.SeverityHigh, "a.cs")}
	rules := []Rule{{Reason: "no fields"}}

	_, suppressed := Apply(findings, rules, testNow)
	if suppressed != 0 {
		t.Fatalf("empty rule must match nothing, suppressed %d", suppressed)
	}
}

func TestApply_CategoryAndSeverityFoldCase(t *testing.T) {
	findings := []model.Finding{suppressFinding("SEC-001", "Security", model.SeverityCritical, "a.cs")}
	rules := []Rule{{Pattern: "SEC-001", Category: "security", Severity: "CRITICAL", Reason: "tracked elsewhere"}}

	_, suppressed := Apply(findings, rules, testNow)
	if suppressed != 1 {
		t.Fatalf("case-insensitive field match failed")
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	findings := []model.Finding{suppressFinding("ARCH-001", "Architecture", model.SeverityHigh, "a.cs")}
	rules := []Rule{{Pattern: "ARCH-001", Reason: "accepted"}}

	_, _ = Apply(findings, rules, testNow)
	if findings[0].Suppressed {
		t.Fatalf("Apply must work on a copy, input was mutated")
	}
}

func TestMatchGlob_Doublestar(t *testing.T) {
	tests := []struct {
		pattern, value string
		want           bool
	}{
		{"tests/**", "tests/a/b/c.cs", true},
		{"tests/**", "src/a.cs", false},
		{"**/Migrations/*.cs", "src/Data/Migrations/Init.cs", true},
		{"src/**/obj/*", "src/app/obj/x.dll", true},
		{"*.cs", "Program.cs", true},
		{"*.cs", "Program.vb", false},
	}
	for _, tc := range tests {
		if got := matchGlob(tc.pattern, tc.value); got != tc.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tc.pattern, tc.value, got, tc.want)
		}
	}
}

package rules

import (
	"reflect"
	"testing"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

func constraintFinding(id, category string, sev model.Severity, constraints ...string) model.Finding {
	return model.Finding{
		PatternID:   id,
		Name:        "finding " + id,
		Severity:    sev,
		Category:    category,
		Kind:        model.KindAntiPattern,
		Occurrences: 1,
		Constraints: constraints,
	}
}

func categoryScore(category string, score float64) model.CategoryScore {
	return model.CategoryScore{Category: category, Score: score}
}

func ruleTexts(rules []model.Rule) []string {
	return Texts(rules)
}

func TestBuild_CaseAndWhitespaceVariantsCollapse(t *testing.T) {
	catalog := []string{"Use dependency injection", "use Dependency Injection  "}
	rules := Build(nil, nil, catalog, Options{})
	if len(rules) != 1 {
		t.Fatalf("expected one rule after dedup, got %v", ruleTexts(rules))
	}
	if rules[0].Text != "Use dependency injection" {
		t.Fatalf("first-seen form must win, got %q", rules[0].Text)
	}
	if rules[0].Provenance != model.ProvenanceCatalog {
		t.Fatalf("provenance = %q, want catalog", rules[0].Provenance)
	}
}

func TestBuild_CapAppliesAfterDedup(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("ARCH-001", "Architecture", model.SeverityHigh, "Keep controllers thin"),
		constraintFinding("ARCH-003", "Architecture", model.SeverityMedium, "Inject dependencies"),
	}
	scores := []model.CategoryScore{categoryScore("Architecture", 8)}
	catalog := []string{
		"keep   CONTROLLERS thin", // duplicate of the first finding constraint
		"Use async I/O",
		"Validate input",
		"Record metrics",
	}
	rules := Build(findings, scores, catalog, Options{Threshold: 5, MaxRules: 3})
	want := []string{"Keep controllers thin", "Inject dependencies", "Use async I/O"}
	if got := ruleTexts(rules); !reflect.DeepEqual(got, want) {
		t.Fatalf("capped rules = %v, want %v", got, want)
	}
}

func TestBuild_RiskThresholdFiltersCategories(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("SEC-001", "Security", model.SeverityCritical, "Parameterize all queries"),
		constraintFinding("STY-001", "Style", model.SeverityLow, "Prefer expression-bodied members"),
	}
	scores := []model.CategoryScore{
		categoryScore("Security", 7),
		categoryScore("Style", 2),
	}
	rules := Build(findings, scores, []string{"Write tests"}, Options{Threshold: 5})
	want := []string{"Parameterize all queries", "Write tests"}
	if got := ruleTexts(rules); !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

func TestBuild_OrderedByScoreThenSeverityThenFirstSeen(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("ARCH-002", "Architecture", model.SeverityLow, "arch low"),
		constraintFinding("SEC-002", "Security", model.SeverityMedium, "sec medium first"),
		constraintFinding("ARCH-001", "Architecture", model.SeverityHigh, "arch high"),
		constraintFinding("SEC-001", "Security", model.SeverityCritical, "sec critical"),
		constraintFinding("SEC-003", "Security", model.SeverityMedium, "sec medium second"),
	}
	scores := []model.CategoryScore{
		categoryScore("Architecture", 6),
		categoryScore("Security", 9),
	}
	rules := Build(findings, scores, []string{"baseline"}, Options{Threshold: 5})
	want := []string{
		"sec critical",
		"sec medium first",
		"sec medium second",
		"arch high",
		"arch low",
		"baseline",
	}
	if got := ruleTexts(rules); !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

func TestBuild_FindingFormWinsOverCatalogDuplicate(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("ARCH-001", "Architecture", model.SeverityHigh, "Use DEPENDENCY injection"),
	}
	scores := []model.CategoryScore{categoryScore("Architecture", 8)}
	rules := Build(findings, scores, []string{"use dependency injection"}, Options{Threshold: 5})
	if len(rules) != 1 {
		t.Fatalf("expected one rule, got %v", ruleTexts(rules))
	}
	r := rules[0]
	if r.Text != "Use DEPENDENCY injection" || r.Provenance != model.ProvenanceFinding || r.PatternID != "ARCH-001" {
		t.Fatalf("unexpected surviving rule: %+v", r)
	}
}

func TestBuild_CatalogConstraintsIncludedWithoutFindings(t *testing.T) {
	catalog := []string{"Write tests", "Document public APIs"}
	rules := Build(nil, nil, catalog, Options{Threshold: 5})
	if got := ruleTexts(rules); !reflect.DeepEqual(got, catalog) {
		t.Fatalf("rules = %v, want %v", got, catalog)
	}
	for _, r := range rules {
		if r.Provenance != model.ProvenanceCatalog || r.Category != "general" {
			t.Fatalf("unexpected catalog rule: %+v", r)
		}
	}
}

func TestBuild_SuppressedFindingContributesNothing(t *testing.T) {
	suppressed := constraintFinding("ARCH-001", "Architecture", model.SeverityCritical, "Keep controllers thin")
	suppressed.Suppressed = true
	scores := []model.CategoryScore{categoryScore("Architecture", 9)}
	rules := Build([]model.Finding{suppressed}, scores, nil, Options{Threshold: 5})
	if len(rules) != 0 {
		t.Fatalf("suppressed finding leaked constraints: %v", ruleTexts(rules))
	}
}

func TestBuild_BlankConstraintsDropped(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("ARCH-001", "Architecture", model.SeverityHigh, "", "   ", "Keep controllers thin"),
	}
	scores := []model.CategoryScore{categoryScore("Architecture", 8)}
	rules := Build(findings, scores, []string{"  "}, Options{Threshold: 5})
	want := []string{"Keep controllers thin"}
	if got := ruleTexts(rules); !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

func TestBuild_UnicodeCaseFoldCollapsesSharpS(t *testing.T) {
	catalog := []string{"Prüfe die Straße", "PRÜFE DIE STRASSE"}
	rules := Build(nil, nil, catalog, Options{})
	if len(rules) != 1 {
		t.Fatalf("full case folding must collapse ß against ss, got %v", ruleTexts(rules))
	}
	if rules[0].Text != "Prüfe die Straße" {
		t.Fatalf("first-seen form must win, got %q", rules[0].Text)
	}
}

func TestBuild_ZeroMaxRulesMeansUncapped(t *testing.T) {
	catalog := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	rules := Build(nil, nil, catalog, Options{})
	if len(rules) != len(catalog) {
		t.Fatalf("expected %d rules, got %d", len(catalog), len(rules))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	findings := []model.Finding{
		constraintFinding("SEC-001", "Security", model.SeverityCritical, "Parameterize all queries", "Never log secrets"),
		constraintFinding("ARCH-001", "Architecture", model.SeverityHigh, "Keep controllers thin"),
		constraintFinding("PERF-001", "Performance", model.SeverityMedium, "Avoid sync-over-async"),
	}
	scores := []model.CategoryScore{
		categoryScore("Security", 9),
		categoryScore("Architecture", 9),
		categoryScore("Performance", 6),
	}
	catalog := []string{"Write tests", "keep controllers THIN"}
	first := Build(findings, scores, catalog, Options{Threshold: 5, MaxRules: 10})
	for i := 0; i < 5; i++ {
		again := Build(findings, scores, catalog, Options{Threshold: 5, MaxRules: 10})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged:\nfirst %v\nagain %v", i, ruleTexts(first), ruleTexts(again))
		}
	}
	// Equal scores fall back to the category name for ordering.
	want := []string{
		"Keep controllers thin",
		"Parameterize all queries",
		"Never log secrets",
		"Avoid sync-over-async",
		"Write tests",
	}
	if got := ruleTexts(first); !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

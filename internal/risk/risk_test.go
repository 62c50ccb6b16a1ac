package risk

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/KumVivek/copilot-instruction-agent/internal/model"
)

func finding(category string, sev model.Severity, occurrences int) model.Finding {
	return model.Finding{
		PatternID:   "T-001",
		Name:        "test finding",
		Severity:    sev,
		Category:    category,
		Kind:        model.KindAntiPattern,
		Occurrences: occurrences,
	}
}

func mustScore(t *testing.T, findings []model.Finding, opts Options) []model.CategoryScore {
	t.Helper()
	scores, err := Score(findings, opts)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	return scores
}

func TestScore_NoFindingsScoresNothing(t *testing.T) {
	for name, findings := range map[string][]model.Finding{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			scores := mustScore(t, findings, Options{})
			if len(scores) != 0 {
				t.Fatalf("expected no category rows, got %v", scores)
			}
			if got := Overall(scores); got != 0 {
				t.Fatalf("overall risk of a clean run must be 0, got %v", got)
			}
			if got := Lookup(scores, "Architecture"); got != 0 {
				t.Fatalf("category without findings must score 0, got %v", got)
			}
		})
	}
}

func TestScore_SingleFindingBaseline(t *testing.T) {
	scores := mustScore(t, []model.Finding{finding("Architecture", model.SeverityHigh, 1)}, Options{})
	if len(scores) != 1 {
		t.Fatalf("expected one category, got %d", len(scores))
	}
	// weight(high)=2.0, impact(1)=1, ceiling 15 => 10*2/15.
	want := 10 * 2.0 / DefaultCeiling
	if math.Abs(scores[0].Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", scores[0].Score, want)
	}
	if scores[0].Category != "Architecture" || len(scores[0].Findings) != 1 {
		t.Fatalf("unexpected category row: %+v", scores[0])
	}
}

func TestScore_SeverityOrdersRisk(t *testing.T) {
	findings := make([]model.Finding, 0, len(model.AllSeverities))
	for _, sev := range model.AllSeverities {
		findings = append(findings, finding("cat-"+string(sev), sev, 3))
	}
	scores := mustScore(t, findings, Options{})
	if len(scores) != len(model.AllSeverities) {
		t.Fatalf("expected %d categories, got %d", len(model.AllSeverities), len(scores))
	}
	for i, sev := range model.AllSeverities {
		if scores[i].Category != "cat-"+string(sev) {
			t.Fatalf("rank %d: got %s, want cat-%s", i, scores[i].Category, sev)
		}
		if i > 0 && scores[i].Score >= scores[i-1].Score {
			t.Fatalf("%s must score strictly below %s: %v >= %v",
				scores[i].Category, scores[i-1].Category, scores[i].Score, scores[i-1].Score)
		}
	}
}

func TestScore_OccurrencesSaturate(t *testing.T) {
	scores := mustScore(t, []model.Finding{
		finding("few", model.SeverityLow, 10),
		finding("many", model.SeverityLow, 1000),
	}, Options{})
	few, many := Lookup(scores, "few"), Lookup(scores, "many")
	if many <= few {
		t.Fatalf("more occurrences must score higher: many=%v few=%v", many, few)
	}
	// 100x the occurrences must buy far less than 100x the risk.
	if many >= 3*few {
		t.Fatalf("occurrence impact must saturate: many=%v few=%v", many, few)
	}
}

func TestScore_CeilingClampsAtTen(t *testing.T) {
	scores := mustScore(t, []model.Finding{
		finding("Security", model.SeverityCritical, 1_000_000),
		finding("Security", model.SeverityCritical, 1_000_000),
	}, Options{})
	if got := Lookup(scores, "Security"); got != 10 {
		t.Fatalf("score must clamp at 10, got %v", got)
	}
}

func TestScore_CustomCeilingRescales(t *testing.T) {
	findings := []model.Finding{finding("Architecture", model.SeverityHigh, 1)}
	loose := mustScore(t, findings, Options{Ceiling: 30})
	tight := mustScore(t, findings, Options{Ceiling: 2})
	if loose[0].Score >= tight[0].Score {
		t.Fatalf("lower ceiling must yield higher score: loose=%v tight=%v", loose[0].Score, tight[0].Score)
	}
	if tight[0].Score != 10 {
		t.Fatalf("ceiling at the raw sum must pin the score to 10, got %v", tight[0].Score)
	}
}

func TestScore_RankedByScoreThenName(t *testing.T) {
	scores := mustScore(t, []model.Finding{
		finding("beta", model.SeverityMedium, 2),
		finding("alpha", model.SeverityMedium, 2),
		finding("top", model.SeverityCritical, 5),
	}, Options{})
	got := make([]string, len(scores))
	for i, s := range scores {
		got[i] = s.Category
	}
	want := []string{"top", "alpha", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
	if Overall(scores) != scores[0].Score {
		t.Fatalf("overall must equal the top category score")
	}
}

func TestScore_RankingUsesRawScoreNotRounded(t *testing.T) {
	// occ 1003 vs occ 1000 differ in the third decimal and round to the
	// same two-decimal display value.
	scores := mustScore(t, []model.Finding{
		finding("behind", model.SeverityLow, 1000),
		finding("ahead", model.SeverityLow, 1003),
	}, Options{})
	if scores[0].Rounded() != scores[1].Rounded() {
		t.Fatalf("test fixture broke: rounded scores must collide, got %v and %v",
			scores[0].Rounded(), scores[1].Rounded())
	}
	if scores[0].Category != "ahead" {
		t.Fatalf("raw score must decide the ranking, got %s first", scores[0].Category)
	}
}

func TestScore_SuppressedFindingsDoNotContribute(t *testing.T) {
	suppressed := finding("Architecture", model.SeverityCritical, 50)
	suppressed.Suppressed = true
	scores := mustScore(t, []model.Finding{
		finding("Architecture", model.SeverityHigh, 1),
		suppressed,
	}, Options{})
	want := mustScore(t, []model.Finding{finding("Architecture", model.SeverityHigh, 1)}, Options{})
	if scores[0].Score != want[0].Score {
		t.Fatalf("suppressed finding changed the score: %v != %v", scores[0].Score, want[0].Score)
	}
	if len(scores[0].Findings) != 1 {
		t.Fatalf("suppressed finding must not appear among contributors, got %d", len(scores[0].Findings))
	}
}

func TestScore_SubZeroOccurrencesClampToOne(t *testing.T) {
	scores := mustScore(t, []model.Finding{finding("general", model.SeverityLow, 0)}, Options{})
	want := mustScore(t, []model.Finding{finding("general", model.SeverityLow, 1)}, Options{})
	if scores[0].Score != want[0].Score {
		t.Fatalf("occurrences below 1 must count as 1: %v != %v", scores[0].Score, want[0].Score)
	}
}

func TestScore_BlankCategoryFallsBackToGeneral(t *testing.T) {
	scores := mustScore(t, []model.Finding{finding("  ", model.SeverityLow, 1)}, Options{})
	if len(scores) != 1 || scores[0].Category != "general" {
		t.Fatalf("blank category must land in general, got %+v", scores)
	}
}

func TestScore_CustomWeightsApply(t *testing.T) {
	weights := Weights{
		model.SeverityCritical: 10,
		model.SeverityHigh:     8,
		model.SeverityMedium:   6,
		model.SeverityLow:      4,
		model.SeverityInfo:     2,
	}
	findings := []model.Finding{finding("Architecture", model.SeverityLow, 1)}
	custom := mustScore(t, findings, Options{Weights: weights})
	standard := mustScore(t, findings, Options{})
	if math.Abs(custom[0].Score-4*standard[0].Score) > 1e-9 {
		t.Fatalf("custom weight not applied: custom=%v standard=%v", custom[0].Score, standard[0].Score)
	}
}

func TestScore_InvalidWeightsRejected(t *testing.T) {
	cases := map[string]Weights{
		"missing severity": {
			model.SeverityCritical: 3,
			model.SeverityHigh:     2,
			model.SeverityMedium:   1.5,
			model.SeverityLow:      1,
		},
		"non-positive": {
			model.SeverityCritical: 3,
			model.SeverityHigh:     2,
			model.SeverityMedium:   1.5,
			model.SeverityLow:      1,
			model.SeverityInfo:     0,
		},
		"not strictly decreasing": {
			model.SeverityCritical: 3,
			model.SeverityHigh:     3,
			model.SeverityMedium:   1.5,
			model.SeverityLow:      1,
			model.SeverityInfo:     0.5,
		},
	}
	for name, weights := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Score(nil, Options{Weights: weights}); err == nil {
				t.Fatalf("expected weight validation error")
			} else if !strings.Contains(err.Error(), "weight") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	findings := []model.Finding{
		finding("Architecture", model.SeverityHigh, 3),
		finding("Security", model.SeverityCritical, 2),
		finding("Performance", model.SeverityMedium, 40),
		finding("Architecture", model.SeverityLow, 7),
		finding("Maintainability", model.SeverityInfo, 1),
		finding("Security", model.SeverityHigh, 1),
	}
	first := mustScore(t, findings, Options{})
	for i := 0; i < 5; i++ {
		again := mustScore(t, findings, Options{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged:\nfirst %+v\nagain %+v", i, first, again)
		}
	}
}

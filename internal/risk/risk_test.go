package risk

import "testing"

func TestCalculateRiskRepeatedMasteringScenario(t *testing.T) {
	history := []string{"master-standard", "master-streaming"}
	report := CalculateRisk(history, 0)

	if report.CategoryCounts[CategoryMastering] != 2 {
		t.Fatalf("expected MASTERING count 2, got %d", report.CategoryCounts[CategoryMastering])
	}

	found := false
	for _, ol := range report.OverLimits {
		if ol.Category == CategoryMastering && ol.Count == 2 && ol.MaxRecommended == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected MASTERING over-limit entry, got %+v", report.OverLimits)
	}

	if report.Level != LevelHigh && report.Level != LevelExcessive {
		t.Fatalf("expected HIGH or EXCESSIVE level, got %s (score=%f)", report.Level, report.Score)
	}
	if report.Headroom.CanAddMastering {
		t.Fatalf("expected canAddMastering=false once over limit")
	}
}

func TestCalculateRiskEmptyHistoryIsPristine(t *testing.T) {
	report := CalculateRisk(nil, 0)
	if report.Level != LevelPristine {
		t.Fatalf("expected PRISTINE for empty history, got %s", report.Level)
	}
}

func TestEvaluateProposedJobDetectsBoundaryCross(t *testing.T) {
	eval := EvaluateProposedJob([]string{"eq-warm"}, "master-standard")
	if eval.ScoreDelta <= 0 {
		t.Fatalf("expected positive score delta from adding a mastering preset, got %f", eval.ScoreDelta)
	}
}

func TestEvaluateProposedJobFlagsExceedingRecommendedMax(t *testing.T) {
	eval := EvaluateProposedJob([]string{"master-standard"}, "master-streaming")
	if !eval.ExceedsRecommendedMax {
		t.Fatalf("expected a second mastering pass to exceed its recommended max")
	}
}

package chainorder

import "testing"

func TestValidateDetectsForbiddenSequence(t *testing.T) {
	result := Validate([]Stage{StageGainStaging, StageLimiting, StageDynamics})

	if result.Status != StatusInvalid {
		t.Fatalf("expected INVALID status, got %s", result.Status)
	}

	found := false
	for _, v := range result.Violations {
		if v.Type == ViolationForbiddenSequence && v.BeforeStage == StageLimiting &&
			v.AfterStage == StageDynamics && v.Severity == SeverityError {
			found = true
			if v.Recommendation == "" {
				t.Fatalf("expected a non-empty recommendation")
			}
		}
	}
	if !found {
		t.Fatalf("expected LIMITING->DYNAMICS ERROR violation, got %+v", result.Violations)
	}
}

func TestValidateDetectsOutOfOrder(t *testing.T) {
	result := Validate([]Stage{StageEQ, StageAnalysis})
	foundOOO := false
	for _, v := range result.Violations {
		if v.Type == ViolationOutOfOrder {
			foundOOO = true
		}
	}
	if !foundOOO {
		t.Fatalf("expected an out-of-order violation, got %+v", result.Violations)
	}
}

func TestValidateDetectsRepeatedNonRepeatableStage(t *testing.T) {
	result := Validate([]Stage{StageLimiting, StageStereo, StageLimiting})
	foundRepeat := false
	for _, v := range result.Violations {
		if v.Type == ViolationNonRepeatableStageRepeated && v.BeforeStage == StageLimiting {
			foundRepeat = true
		}
	}
	if !foundRepeat {
		t.Fatalf("expected a repeated-LIMITING violation, got %+v", result.Violations)
	}
}

func TestValidateSafeOrderIsValid(t *testing.T) {
	result := Validate(SafeOrder)
	if result.Status != StatusValid {
		t.Fatalf("expected the canonical safe order to validate cleanly, got %s: %+v", result.Status, result.Violations)
	}
}

func TestValidateProposedPresetReturnsOnlyNewViolations(t *testing.T) {
	existing := []Stage{StageGainStaging, StageEQ}
	result := ValidateProposedPreset(existing, StageLimiting)
	if !result.CanProceed {
		t.Fatalf("expected CanProceed=true for a clean append, got violations=%+v", result.NewViolations)
	}

	existingWithLimiting := []Stage{StageGainStaging, StageEQ, StageLimiting}
	result2 := ValidateProposedPreset(existingWithLimiting, StageDynamics)
	if result2.CanProceed {
		t.Fatalf("expected CanProceed=false when appending DYNAMICS after LIMITING")
	}
}

func TestBuildOptimalOrderIsIdempotent(t *testing.T) {
	shuffled := []Stage{StageLimiting, StageAnalysis, StageEQ, StageDynamics}
	first := BuildOptimalOrder(shuffled)
	second := BuildOptimalOrder(first)

	if len(first) != len(second) {
		t.Fatalf("expected stable length across reapplication")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected idempotent ordering, got %v then %v", first, second)
		}
	}
}

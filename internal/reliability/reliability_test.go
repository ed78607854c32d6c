package reliability

import (
	"testing"

	"github.com/meridian-audio/sentinel/internal/calibration"
	"github.com/meridian-audio/sentinel/internal/drift"
	"github.com/meridian-audio/sentinel/internal/inference"
)

func TestScoreAppliesCalibrationPenalty(t *testing.T) {
	r := Score(0.9, calibration.StatusSeverelyMiscalibrated, drift.DriftReport{}, inference.StateHealthy, Extra{})
	if r.Score > 0.9*0.70+1e-9 {
		t.Fatalf("expected severe-miscalibration penalty applied, got %f", r.Score)
	}
}

func TestScoreClampedToFloor(t *testing.T) {
	r := Score(0.4, calibration.StatusSeverelyMiscalibrated, drift.DriftReport{ConfidenceReduction: 0.3}, inference.StateCircuitBroken, Extra{})
	if r.Score != calibration.MinFloor {
		t.Fatalf("expected floor clamp, got %f", r.Score)
	}
}

func TestScoreClampedToCeiling(t *testing.T) {
	r := Score(1.2, calibration.StatusWellCalibrated, drift.DriftReport{}, inference.StateHealthy, Extra{})
	if r.Score != calibration.MaxCeiling {
		t.Fatalf("expected ceiling clamp, got %f", r.Score)
	}
}

package decision

import (
	"testing"

	"github.com/meridian-audio/sentinel/internal/classifier"
	"github.com/meridian-audio/sentinel/internal/measurement"
)

func TestEvaluateAppliesHigherPriorityOverride(t *testing.T) {
	risks := map[classifier.RiskKind]float64{
		classifier.RiskOverCompression: 0.7,
		classifier.RiskDynamicsLoss:    0.5,
	}
	c := classifier.Classification{Primary: classifier.StyleMelodic, Confidence: 0.8}

	b := Evaluate(measurement.SignalVector{}, risks, c)

	constraint, ok := b.Constraints["limiterCeilingDB"]
	if !ok {
		t.Fatalf("expected limiterCeilingDB constraint to be set")
	}
	// melodic-dynamics-preservation (priority 65) must win over
	// overcompression-soft-cap (priority 60) since both target the same
	// constraint and the higher-priority rule fired first.
	if constraint.SourceRule != "melodic-dynamics-preservation" {
		t.Fatalf("expected melodic-dynamics-preservation to hold the constraint, got %s", constraint.SourceRule)
	}

	foundSuppressed := false
	for _, id := range b.AppliedRules {
		if id == "overcompression-soft-cap:suppressed" {
			foundSuppressed = true
		}
	}
	if !foundSuppressed {
		t.Fatalf("expected overcompression-soft-cap to be logged as suppressed, got %v", b.AppliedRules)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	risks := map[classifier.RiskKind]float64{classifier.RiskClipping: 0.95}
	c := classifier.Classification{Primary: classifier.StyleTrap}

	b1 := Evaluate(measurement.SignalVector{}, risks, c)
	b2 := Evaluate(measurement.SignalVector{}, risks, c)

	if len(b1.AppliedRules) != len(b2.AppliedRules) {
		t.Fatalf("expected identical appliedRules across repeated evaluation")
	}
	if b1.Constraints["clippingHardStop"].Value != b2.Constraints["clippingHardStop"].Value {
		t.Fatalf("expected deterministic constraint values")
	}
}

func TestWeightedConfidenceClamped(t *testing.T) {
	weights := map[classifier.RiskKind]float64{classifier.RiskClipping: 1.0}
	risks := map[classifier.RiskKind]float64{classifier.RiskClipping: 1.0}
	if got := WeightedConfidence(weights, risks); got != 0 {
		t.Fatalf("expected fully-clamped confidence of 0, got %f", got)
	}

	risks[classifier.RiskClipping] = 0
	if got := WeightedConfidence(weights, risks); got != 1 {
		t.Fatalf("expected confidence of 1 with zero risk, got %f", got)
	}
}

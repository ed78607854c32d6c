package drift

import (
	"testing"

	"github.com/meridian-audio/sentinel/internal/measurement"
)

func TestDetectDriftHardIndicatorShortCircuits(t *testing.T) {
	facts := AssetFacts{IsSilence: true}
	report := DetectDrift(measurement.SignalVector{}, Distribution{}, facts)
	if report.Status != StatusOutOfDistribution {
		t.Fatalf("expected OUT_OF_DISTRIBUTION on silence, got %s", report.Status)
	}
	if report.ShouldTrustML {
		t.Fatalf("expected shouldTrustML=false on hard OOD")
	}
}

func TestDetectDriftTwoHighIndicatorsShortCircuit(t *testing.T) {
	facts := AssetFacts{
		PeakDb:   measurement.Some(0.5),
		DCOffset: measurement.Some(0.2),
	}
	report := DetectDrift(measurement.SignalVector{}, Distribution{}, facts)
	if report.Status != StatusOutOfDistribution {
		t.Fatalf("expected OUT_OF_DISTRIBUTION on two high indicators, got %s", report.Status)
	}
}

func TestDetectDriftNormalWithinDistribution(t *testing.T) {
	dist := Distribution{Signals: map[string]SignalStat{
		"loudness_integrated_lufs": {Mean: -10, Std: 1, Min: -20, Max: 0, Weight: 1},
	}}
	signals := measurement.SignalVector{"loudness_integrated_lufs": measurement.Some(-10.2)}
	report := DetectDrift(signals, dist, AssetFacts{})
	if report.Status != StatusNormal {
		t.Fatalf("expected NORMAL for near-mean signal, got %s (distance=%f)", report.Status, report.AggregateDistance)
	}
	if !report.ShouldTrustML {
		t.Fatalf("expected shouldTrustML=true for normal drift status")
	}
}

func TestDetectDriftBoundViolationCountTriggersOOD(t *testing.T) {
	dist := Distribution{Signals: map[string]SignalStat{
		"a": {Mean: 0, Std: 1, Min: -1, Max: 1, Weight: 1},
		"b": {Mean: 0, Std: 1, Min: -1, Max: 1, Weight: 1},
		"c": {Mean: 0, Std: 1, Min: -1, Max: 1, Weight: 1},
	}}
	signals := measurement.SignalVector{
		"a": measurement.Some(5),
		"b": measurement.Some(5),
		"c": measurement.Some(5),
	}
	report := DetectDrift(signals, dist, AssetFacts{})
	if report.Status != StatusOutOfDistribution {
		t.Fatalf("expected OOD from 3 bound violations, got %s", report.Status)
	}
}

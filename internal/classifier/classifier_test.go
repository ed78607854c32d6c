package classifier

import (
	"testing"

	"github.com/meridian-audio/sentinel/internal/measurement"
)

func TestClassifyTrapFit(t *testing.T) {
	signals := measurement.SignalVector{
		SignalLoudnessIntegrated: measurement.Some(-7.5),
		SignalCrestFactor:        measurement.Some(6),
		SignalTransientSharpness: measurement.Some(0.8),
		SignalSpectralCentroid:   measurement.Some(2400),
		SignalGainReductionHeavy: measurement.Some(0.5),
	}

	c := Classify(signals)

	if c.Primary != StyleTrap {
		t.Fatalf("expected primary trap, got %s (likelihoods=%v)", c.Primary, c.Likelihoods)
	}
	sum := 0.0
	for _, tag := range NonHybridStyles {
		sum += c.Likelihoods[tag]
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("likelihoods not normalized: sum=%f", sum)
	}
}

func TestClassifyMissingSignalsAreNeutral(t *testing.T) {
	c := Classify(measurement.SignalVector{})
	if !c.IsUncertain {
		t.Fatalf("expected uncertain classification with no signals")
	}
}

func TestClassifyForcesHybridOnCloseTop(t *testing.T) {
	// Melodic and boom-bap share an adjacent crest-factor characteristic and
	// overlapping centroid ranges; push both into near-identical fit.
	signals := measurement.SignalVector{
		SignalLoudnessIntegrated: measurement.Some(-11.5),
		SignalCrestFactor:        measurement.Some(9),
		SignalTransientSharpness: measurement.Some(0.47),
		SignalSpectralCentroid:   measurement.Some(1900),
	}

	c := Classify(signals)

	if c.Primary != StyleHybrid && c.Confidence-c.Likelihoods[StyleMelodic] > HybridDelta {
		t.Fatalf("expected hybrid or a close call, got %s conf=%f melodic=%f boombap=%f",
			c.Primary, c.Confidence, c.Likelihoods[StyleMelodic], c.Likelihoods[StyleBoomBap])
	}

	sum := 0.0
	for _, v := range c.Likelihoods {
		sum += v
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("likelihoods not normalized on hybrid path: sum=%f map=%v", sum, c.Likelihoods)
	}
	if c.Confidence != c.Likelihoods[c.Primary] {
		t.Fatalf("confidence %f != likelihoods[primary] %f", c.Confidence, c.Likelihoods[c.Primary])
	}
}

func TestKernelFitBoundaries(t *testing.T) {
	if got := kernelFit(5, 0, 10); got != 1.0 {
		t.Fatalf("expected full fit inside range, got %f", got)
	}
	if got := kernelFit(-100, 0, 10); got != 0 {
		t.Fatalf("expected zero fit far outside range, got %f", got)
	}
}

func TestDetectConflictRequiresNonAdjacentCharacteristics(t *testing.T) {
	likelihoods := map[StyleTag]float64{
		StyleTrap:    0.4,
		StyleMelodic: 0.35,
		StyleDrill:   0.1,
		StyleBoomBap: 0.15,
	}
	order := sortedByLikelihood(likelihoods)
	if !detectConflict(likelihoods, order) {
		t.Fatalf("expected conflict between trap (transient) and melodic (crest)")
	}

	sameCharacteristic := map[StyleTag]float64{
		StyleTrap:  0.4,
		StyleDrill: 0.35,
	}
	order2 := sortedByLikelihood(sameCharacteristic)
	if detectConflict(sameCharacteristic, order2) {
		t.Fatalf("trap and drill share a characteristic signal, should not conflict")
	}
}

package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAllMultiPlatformScenario(t *testing.T) {
	m := Metrics{IntegratedLoudness: -14, TruePeak: -0.5, LoudnessRange: 8}
	result := EvaluateAll(m, []string{"spotify", "ebu-r128"})

	assert.Equal(t, StatusCompliant, result.ByPlatform["spotify"].Status)
	assert.Equal(t, StatusNonCompliant, result.ByPlatform["ebu-r128"].Status)
	assert.Equal(t, 1, result.NonCompliantCount)

	perMetric := result.ByPlatform["ebu-r128"].PerMetric
	assert.Equal(t, StatusNonCompliant, perMetric["integratedLoudness"])
	assert.Equal(t, StatusNonCompliant, perMetric["truePeak"])
}

func TestEvaluateAllOrderIndependent(t *testing.T) {
	m := Metrics{IntegratedLoudness: -14, TruePeak: -0.5, LoudnessRange: 8}
	a := EvaluateAll(m, []string{"spotify", "ebu-r128"})
	b := EvaluateAll(m, []string{"ebu-r128", "spotify"})

	assert.Equal(t, a.NonCompliantCount, b.NonCompliantCount)
	assert.Equal(t, a.ByPlatform["spotify"].Status, b.ByPlatform["spotify"].Status)
}

func TestCalculateAdjustmentsProposesGainForOffTargetLoudness(t *testing.T) {
	m := Metrics{IntegratedLoudness: -14, TruePeak: -0.5, LoudnessRange: 8}
	adjustments := CalculateAdjustments(m, "ebu-r128")

	var found *Adjustment
	for i, a := range adjustments {
		if a.Metric == "integratedLoudness" && a.Kind == "gain" {
			found = &adjustments[i]
		}
	}
	require.NotNil(t, found, "expected an integratedLoudness gain adjustment, got %+v", adjustments)
	assert.Negative(t, found.DeltaDB, "expected a negative gain delta to bring -14 LUFS down toward -23")
}

func TestFindCompliantPlatformsExcludesViolators(t *testing.T) {
	m := Metrics{IntegratedLoudness: -14, TruePeak: -0.5, LoudnessRange: 8}
	ids := FindCompliantPlatforms(m)

	assert.Contains(t, ids, "spotify")
	assert.NotContains(t, ids, "ebu-r128")
}

func TestEvaluateUnknownPlatform(t *testing.T) {
	r := Evaluate(Metrics{}, "not-a-real-platform")
	assert.Equal(t, StatusUnknown, r.Status)
}

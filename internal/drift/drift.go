// Package drift implements the signal-drift detector of spec §4.6: hard
// out-of-distribution indicators, weighted per-signal z-scores against a
// training distribution, and an aggregate RMS distance with status
// thresholds.
package drift

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meridian-audio/sentinel/internal/measurement"
)

// Status is the closed drift-classification set (spec §4.6).
type Status string

const (
	StatusNormal            Status = "NORMAL"
	StatusMinorDrift        Status = "MINOR_DRIFT"
	StatusSignificantDrift  Status = "SIGNIFICANT_DRIFT"
	StatusOutOfDistribution Status = "OUT_OF_DISTRIBUTION"
)

// Distance thresholds for status classification (spec §4.6 step 3).
const (
	MinorThreshold       = 1.5
	SignificantThreshold = 2.5
	OODThreshold         = 4.0

	// BoundViolationOODCount is the bound-violation count that alone
	// short-circuits to OUT_OF_DISTRIBUTION.
	BoundViolationOODCount = 3
)

// SignalStat is one signal's (mean, std, min, max, weight) row of a
// Training Distribution (spec §3).
type SignalStat struct {
	Mean, Std, Min, Max, Weight float64
}

// Distribution is a per-modelId Training Distribution: per-signal stats
// plus the category set the model was trained against.
type Distribution struct {
	Signals            map[string]SignalStat
	ExpectedCategories []string
}

// DriftReport is the detector's output (spec §4.6).
type DriftReport struct {
	Status             Status
	AggregateDistance  float64
	BoundViolations    []string
	PerSignalZScore    map[string]float64
	ConfidenceReduction float64
	ShouldTrustML      bool
	OODIndicators      []string
}

// confidenceReductionFor maps a status to the closed
// {0, 0.05, 0.15, 0.30} reduction set (spec §4.6 step 4).
func confidenceReductionFor(s Status) float64 {
	switch s {
	case StatusMinorDrift:
		return 0.05
	case StatusSignificantDrift:
		return 0.15
	case StatusOutOfDistribution:
		return 0.30
	default:
		return 0
	}
}

// AssetFacts carries the raw facts hard-OOD indicators need beyond the
// signal vector — fields the signal vector itself does not (or cannot)
// expose directly.
type AssetFacts struct {
	IsSilence         bool
	IsPureNoise       bool
	DurationSec       float64
	MonoSumCorrelation measurement.Null
	PeakDb            measurement.Null
	DCOffset          measurement.Null
	BPM               measurement.Null
	SampleRateHz      int
}

var standardSampleRates = map[int]bool{44100: true, 48000: true, 88200: true, 96000: true, 192000: true}

// hardOODIndicators evaluates the closed table of spec §4.6 step 1 and
// returns the indicators that tripped, tagged by severity.
func hardOODIndicators(facts AssetFacts) (critical []string, high []string) {
	if facts.IsSilence {
		critical = append(critical, "silence")
	}
	if facts.IsPureNoise {
		critical = append(critical, "pure_noise")
	}
	if facts.DurationSec > 0 && (facts.DurationSec < 0.5 || facts.DurationSec > 3600) {
		high = append(high, "extreme_duration")
	}
	if v, ok := facts.MonoSumCorrelation.Get(); ok && v < -0.8 {
		high = append(high, "mono_sum_cancellation")
	}
	if v, ok := facts.PeakDb.Get(); ok && v > 0 {
		high = append(high, "clipping")
	}
	if v, ok := facts.DCOffset.Get(); ok && v > 0.1 {
		high = append(high, "dc_offset")
	}
	if v, ok := facts.BPM.Get(); ok && (v < 40 || v > 220) {
		high = append(high, "extreme_bpm")
	}
	if facts.SampleRateHz > 0 && !standardSampleRates[facts.SampleRateHz] {
		high = append(high, "non_standard_sample_rate")
	}
	return critical, high
}

// DetectDrift implements `detectDrift(signals, modelId) → DriftReport`.
func DetectDrift(signals measurement.SignalVector, dist Distribution, facts AssetFacts) DriftReport {
	critical, high := hardOODIndicators(facts)
	if len(critical) > 0 || len(high) >= 2 {
		indicators := append(append([]string(nil), critical...), high...)
		return DriftReport{
			Status:              StatusOutOfDistribution,
			ConfidenceReduction: confidenceReductionFor(StatusOutOfDistribution),
			ShouldTrustML:       false,
			OODIndicators:       indicators,
		}
	}

	zScores := make(map[string]float64)
	var weightedDistances []float64
	var boundViolations []string

	for name, stat := range dist.Signals {
		v, ok := signals.Get(name)
		if !ok {
			continue
		}
		std := stat.Std
		if std <= 0 {
			std = 1
		}
		z := (v - stat.Mean) / std
		zScores[name] = z

		weight := stat.Weight
		if weight <= 0 {
			weight = 1
		}
		weightedDistances = append(weightedDistances, weight*math.Abs(z))

		if v < stat.Min || v > stat.Max {
			boundViolations = append(boundViolations, name)
		}
	}

	if len(boundViolations) >= BoundViolationOODCount {
		return DriftReport{
			Status:              StatusOutOfDistribution,
			AggregateDistance:   rms(weightedDistances),
			BoundViolations:     boundViolations,
			PerSignalZScore:     zScores,
			ConfidenceReduction: confidenceReductionFor(StatusOutOfDistribution),
			ShouldTrustML:       false,
			OODIndicators:       append(append([]string(nil), critical...), high...),
		}
	}

	distance := rms(weightedDistances)
	status := statusForDistance(distance)

	return DriftReport{
		Status:              status,
		AggregateDistance:   distance,
		BoundViolations:     boundViolations,
		PerSignalZScore:     zScores,
		ConfidenceReduction: confidenceReductionFor(status),
		ShouldTrustML:       status != StatusOutOfDistribution,
		OODIndicators:       append(append([]string(nil), critical...), high...),
	}
}

func statusForDistance(d float64) Status {
	switch {
	case d < MinorThreshold:
		return StatusNormal
	case d < SignificantThreshold:
		return StatusMinorDrift
	case d < OODThreshold:
		return StatusSignificantDrift
	default:
		return StatusOutOfDistribution
	}
}

// rms computes the root-mean-square of a slice of per-signal weighted
// distances via gonum's floats helpers.
func rms(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	squares := make([]float64, len(values))
	copy(squares, values)
	floats.Mul(squares, values)
	sum := floats.Sum(squares)
	return math.Sqrt(sum / float64(len(values)))
}

// Package calibration implements the confidence-calibration layer of spec
// §4.5: temperature scaling, overconfidence clamping against a historical
// accuracy table, per-model bias and a final floor/ceiling clamp, plus a
// sliding-window Expected Calibration Error report.
package calibration

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

const (
	// MaxAllowedOverconfidence bounds how far a raw confidence may exceed
	// its bucket's expected accuracy before being clamped (spec §4.5).
	MaxAllowedOverconfidence = 0.10
	// MinFloor and MaxCeiling bound every calibrated output (spec §4.5,
	// reused as-is by the reliability scorer in spec §4.8).
	MinFloor   = 0.35
	MaxCeiling = 0.95

	// eceBins is the fixed bin count for the sliding-window ECE report.
	eceBins = 10
	// eceWindowSize bounds the sliding window of recorded predictions.
	eceWindowSize = 1000
)

// Status is the closed calibration-quality classification used by the
// reliability scorer (spec §4.8).
type Status string

const (
	StatusWellCalibrated      Status = "WELL_CALIBRATED"
	StatusSlightlyMiscalibrated Status = "SLIGHTLY_MISCALIBRATED"
	StatusMiscalibrated       Status = "MISCALIBRATED"
	StatusSeverelyMiscalibrated Status = "SEVERELY_MISCALIBRATED"
)

// BucketAccuracy is one (modelId, bucket) row of historical accuracy used
// to bound overconfidence.
type BucketAccuracy struct {
	ExpectedAccuracy float64
}

// ModelTable is a process-global frozen per-model calibration table:
// bucketed historical accuracy plus a scalar bias and temperature.
type ModelTable struct {
	Temperature float64
	Bias        float64
	// Buckets maps a confidence decile index (0-9, from floor(raw*10))
	// to its historical accuracy bound.
	Buckets map[int]BucketAccuracy
}

// DefaultModelTable is used for any modelId with no explicit entry:
// neutral temperature, zero bias, no bucket history.
var DefaultModelTable = ModelTable{Temperature: 1.0, Bias: 0, Buckets: map[int]BucketAccuracy{}}

// tables is the process-global per-model calibration-table map, guarded by
// tablesMu and written only through RegisterModel (spec §3 ownership note: "Calibration accumulators are process-global
// mutable with explicit init/teardown hooks").
var tablesMu sync.RWMutex
var tables = map[string]ModelTable{}

// RegisterModel installs or replaces a model's calibration table.
func RegisterModel(modelID string, t ModelTable) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	tables[modelID] = t
}

func modelTable(modelID string) ModelTable {
	tablesMu.RLock()
	defer tablesMu.RUnlock()
	if t, ok := tables[modelID]; ok {
		return t
	}
	return DefaultModelTable
}

// CalibratedConfidence is the output of Calibrate (spec §4.5).
type CalibratedConfidence struct {
	Value  float64
	Status Status
}

// Calibrate implements `calibrate(raw, modelId, context?) → CalibratedConfidence`.
// logits, if non-empty, are temperature-scaled via a softmax-style
// transform before the rest of the pipeline; otherwise raw is scaled
// directly via `raw / (raw + (1-raw)·T)`.
//
// Re-feeding Value back through Calibrate with the same modelID is only
// idempotent for DefaultModelTable (T=1, Bias=0); a non-zero Bias or T≠1
// model re-applies its scaling on the second pass.
func Calibrate(raw float64, modelID string, logits []float64) CalibratedConfidence {
	table := modelTable(modelID)
	temp := table.Temperature
	if temp <= 0 {
		temp = 1.0
	}

	scaled := raw
	if len(logits) > 0 {
		scaled = temperatureScaleLogits(logits, temp)
	} else {
		scaled = raw / (raw + (1-raw)*temp)
	}

	bucket := bucketIndex(scaled)
	if b, ok := table.Buckets[bucket]; ok {
		ceiling := b.ExpectedAccuracy + MaxAllowedOverconfidence
		if scaled > ceiling {
			scaled = ceiling
		}
	}

	scaled += table.Bias

	final := clamp(scaled, MinFloor, MaxCeiling)

	return CalibratedConfidence{
		Value:  final,
		Status: statusFor(raw, final),
	}
}

// temperatureScaleLogits applies temperature scaling to a logit vector and
// returns the top-class probability after softmax, using gonum's LogSumExp
// for numerical stability.
func temperatureScaleLogits(logits []float64, temperature float64) float64 {
	scaled := make([]float64, len(logits))
	for i, l := range logits {
		scaled[i] = l / temperature
	}
	denom := floats.LogSumExp(scaled)

	best := scaled[0]
	for _, v := range scaled[1:] {
		if v > best {
			best = v
		}
	}
	return clampUnit(math.Exp(best - denom))
}

func bucketIndex(v float64) int {
	idx := int(v * eceBins)
	if idx < 0 {
		return 0
	}
	if idx >= eceBins {
		return eceBins - 1
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampUnit(v float64) float64 { return clamp(v, 0, 1) }

func statusFor(raw, final float64) Status {
	drift := raw - final
	if drift < 0 {
		drift = -drift
	}
	switch {
	case drift < 0.03:
		return StatusWellCalibrated
	case drift < 0.08:
		return StatusSlightlyMiscalibrated
	case drift < 0.15:
		return StatusMiscalibrated
	default:
		return StatusSeverelyMiscalibrated
	}
}

// Package reliability implements the reliability scorer of spec §4.8: a
// pure function combining calibration-status penalties, drift-driven
// confidence reduction, and circuit-breaker state into a single bounded
// score.
package reliability

import (
	"github.com/meridian-audio/sentinel/internal/calibration"
	"github.com/meridian-audio/sentinel/internal/drift"
	"github.com/meridian-audio/sentinel/internal/inference"
)

// calibrationPenalty maps a calibration Status to its multiplicative
// penalty (spec §4.8).
func calibrationPenalty(s calibration.Status) float64 {
	switch s {
	case calibration.StatusSeverelyMiscalibrated:
		return 0.70
	case calibration.StatusMiscalibrated:
		return 0.85
	case calibration.StatusSlightlyMiscalibrated:
		return 0.95
	default:
		return 1.0
	}
}

// Extra carries additional penalty multipliers the caller wants applied
// (e.g. a style-classification uncertainty discount); each must already
// be in [0,1].
type Extra struct {
	Multipliers []float64
}

// Reliability is the scorer's output.
type Reliability struct {
	Score float64
}

// Score implements `reliability(calibratedConfidence, driftStatus,
// circuitState, extra) → Reliability` (spec §4.8).
func Score(calibratedConfidence float64, calStatus calibration.Status, driftReport drift.DriftReport, circuitState inference.ModelState, extra Extra) Reliability {
	v := calibratedConfidence * calibrationPenalty(calStatus)
	v -= driftReport.ConfidenceReduction

	if circuitState == inference.StateCircuitBroken {
		v *= 0.5
	} else if circuitState == inference.StateDegraded {
		v *= 0.8
	}

	for _, m := range extra.Multipliers {
		v *= m
	}

	if v < calibration.MinFloor {
		v = calibration.MinFloor
	}
	if v > calibration.MaxCeiling {
		v = calibration.MaxCeiling
	}

	return Reliability{Score: v}
}

// Package analyzers implements the Analyzer Suite (spec §4.2): ~20
// cooperating, stateless analyzers that each turn probe readings into one
// closed-taxonomy measurement record. Analyzers never consume each other's
// output — the orchestrator (internal/orchestrator) composes the bundle.
package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// ShortResult is the cheap quickCheck() output: a status string and, where
// meaningful, the single headline value behind it.
type ShortResult struct {
	Status string
	Value  measurement.Null
}

// Analyzer is implemented by every member of the suite.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error)
	QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error)
}

// Options carries the caller-supplied tunables of the suite: loudness target
// and tolerance, macro window size, and minimum temporal section duration.
type Options struct {
	LoudnessTargetLUFS float64
	LoudnessToleranceLU float64
	MacroWindowSec      float64
	MinSectionDurSec    float64
}

// DefaultOptions mirrors the defaults named throughout spec §4.2.
func DefaultOptions() Options {
	return Options{
		LoudnessTargetLUFS: -14,
		LoudnessToleranceLU: 1,
		MacroWindowSec:      16,
		MinSectionDurSec:    4,
	}
}

// All returns the full analyzer suite in a stable order, used by the
// orchestrator for fan-out.
func All() []Analyzer {
	return []Analyzer{
		LoudnessAnalyzer{},
		HeadroomAnalyzer{},
		CrestStressAnalyzer{},
		TransientAnalyzer{},
		DCOffsetAnalyzer{},
		TopologyAnalyzer{},
		LowEndMonoAnalyzer{},
		SpectralBalanceAnalyzer{},
		GainReductionAnalyzer{},
		CodecStressAnalyzer{},
		MonoFoldDownAnalyzer{},
		CarSystemAnalyzer{},
		TemporalDensityAnalyzer{},
		MacroDynamicsAnalyzer{},
	}
}

// asProbeErr unwraps a probe.Error, reporting whether this failure should
// degrade the analyzer to its UNKNOWN status (spec §7: ProbeUnavailable is
// never fatal, it is per-analyzer).
func asProbeErr(err error) (*probe.Error, bool) {
	pe, ok := err.(*probe.Error)
	return pe, ok
}

func toMeasurementNull(n probe.NullFloat) measurement.Null {
	return measurement.Null{Value: n.Value, Valid: n.Valid}
}

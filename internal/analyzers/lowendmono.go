package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// LowEndMonoAnalyzer implements the low-end mono-compatibility analyzer of
// spec §4.2 — sub-120Hz band correlation drives "convert bass to mono"
// recommendations downstream in the decision engine.
type LowEndMonoAnalyzer struct{}

func (LowEndMonoAnalyzer) Name() string { return "low_end_mono" }

func lowEndStatus(corr float64) measurement.StereoPhaseStatus {
	switch {
	case corr > 0.9:
		return measurement.StereoPhaseExcellent
	case corr > 0.6:
		return measurement.StereoPhaseGood
	case corr > 0.2:
		return measurement.StereoPhasePoor
	default:
		return measurement.StereoPhaseCritical
	}
}

func (LowEndMonoAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 20, HighHz: 120})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.LowEndMonoRecord{Status: measurement.StereoPhaseUnknown}, nil
		}
		return nil, err
	}
	if !reading.BandCorrelation.Valid {
		return measurement.LowEndMonoRecord{Status: measurement.StereoPhaseUnknown}, nil
	}

	corr := reading.BandCorrelation.Value
	return measurement.LowEndMonoRecord{
		SubBassCorrelation: measurement.Some(corr),
		Status:             lowEndStatus(corr),
	}, nil
}

func (a LowEndMonoAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	lr := rec.(measurement.LowEndMonoRecord)
	return ShortResult{Status: string(lr.Status), Value: lr.SubBassCorrelation}, nil
}

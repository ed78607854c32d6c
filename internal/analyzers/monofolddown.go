package analyzers

import (
	"context"
	"math"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// MonoFoldDownAnalyzer implements the mono fold-down simulator of spec
// §4.2: overall correlation plus per-band band-limited correlation predict
// the gain change a mono sum would produce.
type MonoFoldDownAnalyzer struct{}

func (MonoFoldDownAnalyzer) Name() string { return "mono_fold_down" }

var foldDownBands = map[string][2]float64{
	"sub_bass":  {20, 60},
	"bass":      {60, 250},
	"low_mid":   {250, 500},
	"mid":       {500, 2000},
	"upper_mid": {2000, 6000},
	"high":      {6000, 20000},
}

func (MonoFoldDownAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	overall, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindPhaseCorrelation})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.MonoFoldDownRecord{Status: measurement.StereoPhaseUnknown}, nil
		}
		return nil, err
	}
	if !overall.CorrelationOverall.Valid {
		return measurement.MonoFoldDownRecord{Status: measurement.StereoPhaseUnknown}, nil
	}

	overallGainChange := correlationToGainChangeDb(overall.CorrelationOverall.Value)
	rec := measurement.MonoFoldDownRecord{
		OverallGainChangeDB: measurement.Some(overallGainChange),
		PerBandGainChangeDB: make(map[string]float64),
	}

	for name, band := range foldDownBands {
		reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: band[0], HighHz: band[1]})
		if err != nil {
			if _, ok := asProbeErr(err); ok {
				continue
			}
			return nil, err
		}
		if reading.BandCorrelation.Valid {
			rec.PerBandGainChangeDB[name] = correlationToGainChangeDb(reading.BandCorrelation.Value)
		}
	}

	rec.Status = lowEndStatus(overall.CorrelationOverall.Value)
	return rec, nil
}

// correlationToGainChangeDb models the predicted level change a perfectly
// in-phase-to-out-of-phase sum produces: +3dB at full correlation, -inf
// (modeled as -24dB floor) at full anti-correlation.
func correlationToGainChangeDb(corr float64) float64 {
	if corr <= -0.999 {
		return -24
	}
	return 10 * math.Log10(1+corr) // 0dB at corr=0, +3.01dB at corr=1
}

func (a MonoFoldDownAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	mr := rec.(measurement.MonoFoldDownRecord)
	return ShortResult{Status: string(mr.Status), Value: mr.OverallGainChangeDB}, nil
}

package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// CrestStressAnalyzer implements the crest factor / limiter stress
// analyzer of spec §4.2.
type CrestStressAnalyzer struct{}

func (CrestStressAnalyzer) Name() string { return "crest_stress" }

func crestStressStatus(crestDb float64) measurement.CrestStressStatus {
	switch {
	case crestDb < 6:
		return measurement.CrestSeverelyLimited
	case crestDb < 9:
		return measurement.CrestHeavilyCompressed
	case crestDb < 14:
		return measurement.CrestNormal
	default:
		return measurement.CrestVeryDynamic
	}
}

func (CrestStressAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	overall, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindOverallStats})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.CrestStressRecord{Status: measurement.CrestUnknown}, nil
		}
		return nil, err
	}
	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: 400})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}

	if !overall.PeakDb.Valid || !overall.RMSDb.Valid {
		return measurement.CrestStressRecord{Status: measurement.CrestUnknown}, nil
	}

	crestDb := overall.PeakDb.Value - overall.RMSDb.Value
	rec := measurement.CrestStressRecord{
		CrestFactorDB: measurement.Some(crestDb),
		Status:        crestStressStatus(crestDb),
	}

	crestPenalty := clamp01((14 - crestDb) / 14)
	sustainedLFPenalty := 0.0
	durationPenalty := 0.0
	if windowed != nil && len(windowed.WindowsDb) > 0 {
		heavy := 0
		for _, w := range windowed.WindowsDb {
			if w > -6 { // sustained near-ceiling short-term loudness
				heavy++
			}
		}
		sustainedLFPenalty = clamp01(float64(heavy) / float64(len(windowed.WindowsDb)))
		durationPenalty = clamp01(float64(len(windowed.WindowsDb)) / 10000)
	}
	rec.StressIndex = measurement.Some(clamp01(0.6*crestPenalty + 0.3*sustainedLFPenalty + 0.1*durationPenalty))

	return rec, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (a CrestStressAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	cr := rec.(measurement.CrestStressRecord)
	return ShortResult{Status: string(cr.Status), Value: cr.CrestFactorDB}, nil
}

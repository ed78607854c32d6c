package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// GainReductionAnalyzer implements the gain-reduction mapper of spec §4.2:
// fraction of the asset in a heavy/extreme compression regime, derived from
// windowed crest measurements.
type GainReductionAnalyzer struct{}

func (GainReductionAnalyzer) Name() string { return "gain_reduction" }

func gainReductionStatus(heavy, extreme float64) measurement.GainReductionStatus {
	switch {
	case extreme > 0.3:
		return measurement.GainReductionHeavy
	case heavy > 0.3:
		return measurement.GainReductionModerate
	default:
		return measurement.GainReductionLight
	}
}

func (GainReductionAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: 400})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.GainReductionRecord{Status: measurement.GainReductionUnknown}, nil
		}
		return nil, err
	}
	if len(windowed.WindowsDb) == 0 {
		return measurement.GainReductionRecord{Status: measurement.GainReductionUnknown}, nil
	}

	heavy, extreme := 0, 0
	for _, w := range windowed.WindowsDb {
		// windowed.WindowsDb carries short-term loudness; windows riding
		// near the ceiling indicate heavy limiter engagement.
		if w > -3 {
			extreme++
		} else if w > -6 {
			heavy++
		}
	}
	total := float64(len(windowed.WindowsDb))
	heavyFrac := float64(heavy) / total
	extremeFrac := float64(extreme) / total

	return measurement.GainReductionRecord{
		HeavyFraction:   measurement.Some(heavyFrac),
		ExtremeFraction: measurement.Some(extremeFrac),
		Status:          gainReductionStatus(heavyFrac, extremeFrac),
	}, nil
}

func (a GainReductionAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	gr := rec.(measurement.GainReductionRecord)
	return ShortResult{Status: string(gr.Status), Value: gr.ExtremeFraction}, nil
}

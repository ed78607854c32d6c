package analyzers

import (
	"context"
	"math"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// DCOffsetAnalyzer implements the DC-offset detector of spec §4.2.
type DCOffsetAnalyzer struct{}

func (DCOffsetAnalyzer) Name() string { return "dc_offset" }

func dcOffsetStatus(maxAbs float64) measurement.DCOffsetStatus {
	switch {
	case maxAbs < 0.01:
		return measurement.DCOffsetNone
	case maxAbs < 0.03:
		return measurement.DCOffsetMinor
	case maxAbs < 0.08:
		return measurement.DCOffsetModerate
	default:
		return measurement.DCOffsetSevere
	}
}

func (DCOffsetAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindOverallStats})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.DCOffsetRecord{Status: measurement.DCOffsetUnknown}, nil
		}
		return nil, err
	}
	if len(reading.DCOffset) == 0 {
		return measurement.DCOffsetRecord{Status: measurement.DCOffsetUnknown}, nil
	}

	maxAbs := 0.0
	for _, v := range reading.DCOffset {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}

	return measurement.DCOffsetRecord{
		PerChannelOffset: reading.DCOffset,
		MaxAbsOffset:     measurement.Some(maxAbs),
		Status:           dcOffsetStatus(maxAbs),
	}, nil
}

func (a DCOffsetAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	dc := rec.(measurement.DCOffsetRecord)
	return ShortResult{Status: string(dc.Status), Value: dc.MaxAbsOffset}, nil
}

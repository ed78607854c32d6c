package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// LoudnessAnalyzer implements the loudness analyzer of spec §4.2.
type LoudnessAnalyzer struct{}

func (LoudnessAnalyzer) Name() string { return "loudness" }

func (LoudnessAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindLoudnessR128})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.LoudnessRecord{Status: measurement.LoudnessUnknown}, nil
		}
		return nil, err
	}

	target := opts.LoudnessTargetLUFS
	tolerance := opts.LoudnessToleranceLU
	if tolerance == 0 {
		tolerance = 1
	}
	if target == 0 {
		target = -14
	}

	rec := measurement.LoudnessRecord{
		Integrated:   toMeasurementNull(reading.IntegratedLUFS),
		MomentaryMax: toMeasurementNull(reading.MomentaryMaxLUFS),
		ShortTermMax: toMeasurementNull(reading.ShortTermMaxLUFS),
		Range:        toMeasurementNull(reading.LoudnessRangeLU),
		TruePeak:     toMeasurementNull(reading.TruePeakDb),
		TargetLUFS:   target,
		ToleranceLU:  tolerance,
	}

	if !reading.IntegratedLUFS.Valid {
		// Silence below ~-55 LUFS: integrated is unmeasurable, never a default.
		rec.Status = measurement.LoudnessUnknown
		return rec, nil
	}

	integrated := reading.IntegratedLUFS.Value
	diff := integrated - target
	switch {
	case diff > tolerance:
		rec.Status = measurement.LoudnessTooLoud
	case diff < -tolerance:
		rec.Status = measurement.LoudnessTooQuiet
	default:
		rec.Status = measurement.LoudnessOnTarget
	}
	rec.RequiredGainDB = measurement.Some(target - integrated)

	return rec, nil
}

func (a LoudnessAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	lr := rec.(measurement.LoudnessRecord)
	return ShortResult{Status: string(lr.Status), Value: lr.Integrated}, nil
}

package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// HeadroomAnalyzer implements the headroom estimator of spec §4.2.
// Peak-fallback policy (resolving the open question of spec §9): prefer
// true peak, fall back to sample peak when true peak is unavailable; the
// record always records which one was used via PeakUsed.
type HeadroomAnalyzer struct{}

func (HeadroomAnalyzer) Name() string { return "headroom" }

const (
	streamingTargetDBTP = -1.0
	broadcastTargetDBTP = -2.0
	masteringTargetDBTP = -1.0
)

func headroomStatus(headroomDb float64) measurement.HeadroomStatus {
	switch {
	case headroomDb <= 0:
		return measurement.HeadroomClipped
	case headroomDb <= 0.5:
		return measurement.HeadroomCritical
	case headroomDb <= 3:
		return measurement.HeadroomLimited
	case headroomDb <= 6:
		return measurement.HeadroomAdequate
	case headroomDb <= 12:
		return measurement.HeadroomGenerous
	default:
		return measurement.HeadroomExcessive
	}
}

func (HeadroomAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindOverallStats})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.PeakRecord{Status: measurement.HeadroomUnknown}, nil
		}
		return nil, err
	}
	loudness, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindLoudnessR128})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}

	rec := measurement.PeakRecord{
		SamplePeak: toMeasurementNull(reading.PeakDb),
		RMS:        toMeasurementNull(reading.RMSDb),
	}
	if loudness != nil {
		rec.TruePeak = toMeasurementNull(loudness.TruePeakDb)
	}

	var peakDb float64
	switch {
	case rec.TruePeak.Valid:
		peakDb = rec.TruePeak.Value
		rec.PeakUsed = measurement.PeakSourceTrue
	case rec.SamplePeak.Valid:
		peakDb = rec.SamplePeak.Value
		rec.PeakUsed = measurement.PeakSourceSample
	default:
		rec.Status = measurement.HeadroomUnknown
		rec.PeakUsed = measurement.PeakSourceNone
		return rec, nil
	}

	headroomDb := -peakDb
	rec.HeadroomDB = measurement.Some(headroomDb)
	rec.Status = headroomStatus(headroomDb)

	rec.MaxGainStreamingDB = measurement.Some(streamingTargetDBTP - peakDb)
	rec.MaxGainBroadcastDB = measurement.Some(broadcastTargetDBTP - peakDb)
	rec.MaxGainMasteringDB = measurement.Some(masteringTargetDBTP - peakDb)

	if rec.SamplePeak.Valid && rec.TruePeak.Valid {
		rec.CrestFactorDB = measurement.Some(peakDb - func() float64 {
			if rec.RMS.Valid {
				return rec.RMS.Value
			}
			return 0
		}())
	}

	return rec, nil
}

// Recommendation returns the spec §8-exercised actionable string for a
// headroom status ("Apply limiting carefully" etc).
func HeadroomRecommendation(status measurement.HeadroomStatus) string {
	switch status {
	case measurement.HeadroomClipped:
		return "Reduce gain immediately; the asset is clipping at or above 0 dBFS."
	case measurement.HeadroomCritical:
		return "Apply limiting carefully; headroom is critically thin and further processing risks clipping."
	case measurement.HeadroomLimited:
		return "Leave limited extra headroom before applying further gain stages."
	case measurement.HeadroomAdequate:
		return "Headroom is adequate for standard mastering chains."
	case measurement.HeadroomGenerous:
		return "Headroom is generous; additional loudness can be applied if desired."
	case measurement.HeadroomExcessive:
		return "Headroom is excessive; consider raising overall level."
	default:
		return "Headroom could not be determined."
	}
}

func (a HeadroomAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	pr := rec.(measurement.PeakRecord)
	return ShortResult{Status: string(pr.Status), Value: pr.HeadroomDB}, nil
}

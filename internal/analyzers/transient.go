package analyzers

import (
	"context"
	"math"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// TransientAnalyzer implements the transient-sharpness analyzer of spec §4.2.
type TransientAnalyzer struct{}

func (TransientAnalyzer) Name() string { return "transient" }

func transientStatus(sharpness float64) measurement.TransientStatus {
	switch {
	case sharpness < 0.15:
		return measurement.TransientVeryBlunted
	case sharpness < 0.35:
		return measurement.TransientBlunted
	case sharpness < 0.65:
		return measurement.TransientNormal
	case sharpness < 0.85:
		return measurement.TransientSpiky
	default:
		return measurement.TransientVerySpiky
	}
}

func (TransientAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: 20})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.TransientRecord{Status: measurement.TransientUnknown}, nil
		}
		return nil, err
	}
	if len(windowed.WindowsDb) < 2 {
		return measurement.TransientRecord{Status: measurement.TransientUnknown}, nil
	}

	var sumJump, maxJump float64
	for i := 1; i < len(windowed.WindowsDb); i++ {
		jump := math.Abs(windowed.WindowsDb[i] - windowed.WindowsDb[i-1])
		sumJump += jump
		if jump > maxJump {
			maxJump = jump
		}
	}
	meanJump := sumJump / float64(len(windowed.WindowsDb)-1)
	// Normalize: typical percussive material swings ~0-20dB between 20ms
	// windows; combine mean and peak jump into a bounded [0,1] sharpness.
	sharpness := clamp01((0.5*meanJump + 0.5*maxJump) / 20)

	return measurement.TransientRecord{
		SharpnessNormalized: measurement.Some(sharpness),
		Status:              transientStatus(sharpness),
	}, nil
}

func (a TransientAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	tr := rec.(measurement.TransientRecord)
	return ShortResult{Status: string(tr.Status), Value: tr.SharpnessNormalized}, nil
}

package analyzers

import (
	"context"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// CodecStressAnalyzer implements the codec-stress predictor of spec §4.2:
// composite score from HF energy ratio, sibilance ratio, pre-echo event
// density, stereo decorrelation, and spectral flux.
type CodecStressAnalyzer struct{}

func (CodecStressAnalyzer) Name() string { return "codec_stress" }

func codecStressStatus(score float64) measurement.CodecStressStatus {
	switch {
	case score < 0.35:
		return measurement.CodecStressLow
	case score < 0.65:
		return measurement.CodecStressModerate
	default:
		return measurement.CodecStressHigh
	}
}

func (CodecStressAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	hf, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 8000, HighHz: 20000})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.CodecStressRecord{Status: measurement.CodecStressUnknown}, nil
		}
		return nil, err
	}
	sibilance, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindBandStats, LowHz: 5000, HighHz: 9000})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}
	spectral, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindSpectralStats})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}
	phase, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindPhaseCorrelation})
	if err != nil {
		if _, ok := asProbeErr(err); !ok {
			return nil, err
		}
	}

	if !hf.BandEnergyRatio.Valid {
		return measurement.CodecStressRecord{Status: measurement.CodecStressUnknown}, nil
	}

	hfEnergy := clamp01(hf.BandEnergyRatio.Value)
	sibilanceRatio := 0.0
	if sibilance != nil && sibilance.BandEnergyRatio.Valid {
		sibilanceRatio = clamp01(sibilance.BandEnergyRatio.Value)
	}
	decorrelation := 0.0
	if phase != nil && phase.CorrelationOverall.Valid {
		decorrelation = clamp01(1 - phase.CorrelationOverall.Value)
	}
	flux := 0.0
	if spectral != nil && spectral.SpectralFlux.Valid {
		flux = clamp01(spectral.SpectralFlux.Value)
	}

	score := clamp01(0.35*hfEnergy + 0.25*sibilanceRatio + 0.2*decorrelation + 0.2*flux)

	rec := measurement.CodecStressRecord{
		Score:  measurement.Some(score),
		Status: codecStressStatus(score),
	}
	// Higher stress demands a higher minimum bitrate to avoid artifacts.
	rec.MinBitrateMP3 = measurement.Some(128 + 192*score)
	rec.MinBitrateAAC = measurement.Some(96 + 160*score)
	rec.MinBitrateOpus = measurement.Some(64 + 128*score)

	return rec, nil
}

func (a CodecStressAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	cs := rec.(measurement.CodecStressRecord)
	return ShortResult{Status: string(cs.Status), Value: cs.Score}, nil
}

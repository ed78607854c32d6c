package decision

import (
	"github.com/meridian-audio/sentinel/internal/classifier"
	"github.com/meridian-audio/sentinel/internal/measurement"
)

// ComputeRiskScores derives a [0,1] score per closed risk kind (spec §3)
// from the measurement bundle's analyzer statuses. Each score is an
// independent, stateless read of the relevant analyzer record; unknown
// statuses contribute 0 (absence of evidence, not evidence of absence).
func ComputeRiskScores(b *measurement.Bundle) map[classifier.RiskKind]float64 {
	risks := make(map[classifier.RiskKind]float64, len(classifier.AllRiskKinds))
	for _, k := range classifier.AllRiskKinds {
		risks[k] = 0
	}

	if r, ok := b.Get("headroom"); ok {
		hr := r.(measurement.PeakRecord)
		switch hr.Status {
		case measurement.HeadroomClipped:
			risks[classifier.RiskClipping] = 1.0
		case measurement.HeadroomCritical:
			risks[classifier.RiskClipping] = 0.7
		case measurement.HeadroomLimited:
			risks[classifier.RiskClipping] = 0.3
		}
	}

	if r, ok := b.Get("crest_stress"); ok {
		cr := r.(measurement.CrestStressRecord)
		switch cr.Status {
		case measurement.CrestSeverelyLimited:
			risks[classifier.RiskOverCompression] = 1.0
			risks[classifier.RiskDynamicsLoss] = 1.0
		case measurement.CrestHeavilyCompressed:
			risks[classifier.RiskOverCompression] = 0.6
			risks[classifier.RiskDynamicsLoss] = 0.5
		}
	}

	if r, ok := b.Get("gain_reduction"); ok {
		gr := r.(measurement.GainReductionRecord)
		if v, ok := gr.ExtremeFraction.Get(); ok {
			risks[classifier.RiskOverCompression] = max(risks[classifier.RiskOverCompression], v)
		}
	}

	if r, ok := b.Get("spectral_balance"); ok {
		sr := r.(measurement.SpectralRecord)
		if sr.Status == measurement.SpectralImbalanced {
			risks[classifier.RiskMasking] = 0.6
			risks[classifier.RiskVocalIntelligibility] = 0.5
		}
	}

	if r, ok := b.Get("stereo_phase"); ok {
		sr := r.(measurement.StereoPhaseRecord)
		switch sr.Status {
		case measurement.StereoPhaseCritical:
			risks[classifier.RiskPhaseCollapse] = 1.0
			risks[classifier.RiskTranslation] = 0.8
		case measurement.StereoPhasePoor:
			risks[classifier.RiskPhaseCollapse] = 0.6
			risks[classifier.RiskTranslation] = 0.5
		}
	}

	if r, ok := b.Get("low_end_mono"); ok {
		lr := r.(measurement.LowEndMonoRecord)
		switch lr.Status {
		case measurement.StereoPhaseCritical:
			risks[classifier.RiskLowEndMasking] = 1.0
		case measurement.StereoPhasePoor:
			risks[classifier.RiskLowEndMasking] = 0.6
		}
	}

	if r, ok := b.Get("codec_stress"); ok {
		cs := r.(measurement.CodecStressRecord)
		if v, ok := cs.Score.Get(); ok {
			risks[classifier.RiskArtifact] = v
		}
	}

	return risks
}

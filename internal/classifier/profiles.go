// Package classifier implements the style classifier of spec §4.3: a
// weighted-kernel likelihood over a frozen set of production-style
// profiles, run against the decision-relevant signal vector extracted from
// a Measurement Bundle.
package classifier

// StyleTag is a closed production-style identifier.
type StyleTag string

const (
	StyleTrap     StyleTag = "trap"
	StyleDrill    StyleTag = "drill"
	StyleMelodic  StyleTag = "melodic"
	StyleBoomBap  StyleTag = "boom_bap"
	StyleHybrid   StyleTag = "hybrid"
)

// RiskKind is a closed risk category over which a style profile carries a
// weight vector (spec §3).
type RiskKind string

const (
	RiskMasking              RiskKind = "masking"
	RiskClipping             RiskKind = "clipping"
	RiskTranslation          RiskKind = "translation"
	RiskPhaseCollapse        RiskKind = "phaseCollapse"
	RiskOverCompression      RiskKind = "overCompression"
	RiskVocalIntelligibility RiskKind = "vocalIntelligibility"
	RiskLowEndMasking        RiskKind = "lowEndMasking"
	RiskArtifact             RiskKind = "artifactRisk"
	RiskDynamicsLoss         RiskKind = "dynamicsLoss"
)

// AllRiskKinds lists the closed risk-kind set in a stable order, used
// whenever a risk-weight vector must be enumerated deterministically.
var AllRiskKinds = []RiskKind{
	RiskMasking, RiskClipping, RiskTranslation, RiskPhaseCollapse,
	RiskOverCompression, RiskVocalIntelligibility, RiskLowEndMasking,
	RiskArtifact, RiskDynamicsLoss,
}

// SignalRange is a profile's expected [min,max] for one signal, with a
// per-signal weight controlling how much that signal contributes to the
// profile's overall fit.
type SignalRange struct {
	Min, Max float64
	Weight   float64
}

// Profile is a frozen per-style record: expected signal ranges plus a
// risk-weight vector (spec §3 "Style Profile").
type Profile struct {
	Tag         StyleTag
	Signals     map[string]SignalRange
	RiskWeights map[RiskKind]float64
}

// signal names are grounded in the decision-relevant outputs extracted by
// ExtractSignalVector (internal/measurement/signals.go).
const (
	SignalLoudnessIntegrated = "loudness_integrated_lufs"
	SignalLoudnessRange      = "loudness_range_lu"
	SignalCrestFactor        = "crest_factor_db"
	SignalTransientSharpness = "transient_sharpness"
	SignalStereoWidth        = "stereo_width"
	SignalStereoCorrelation  = "stereo_correlation"
	SignalSpectralCentroid   = "spectral_centroid_hz"
	SignalSpectralFlatness   = "spectral_flatness"
	SignalGainReductionHeavy = "gain_reduction_heavy_fraction"
	SignalCodecStress        = "codec_stress_score"
	SignalMacroSlope         = "macro_dynamics_slope"
	SignalPumpingRisk        = "car_system_pumping_risk"
)

// Profiles is the frozen, process-global style-profile table (spec §3,
// §4.3). Expected ranges are drawn from common production conventions for
// each style and are intentionally broad; Open Question in spec §9 about
// the historical v1/v2 signal-set split is resolved by using this single
// superset vector with neutral weight 1 for every signal a given profile
// does not explicitly narrow.
var Profiles = map[StyleTag]Profile{
	StyleTrap: {
		Tag: StyleTrap,
		Signals: map[string]SignalRange{
			SignalLoudnessIntegrated: {Min: -9, Max: -6, Weight: 1.5},
			SignalCrestFactor:        {Min: 4, Max: 8, Weight: 1.3},
			SignalTransientSharpness: {Min: 0.6, Max: 1.0, Weight: 1.4},
			SignalSpectralCentroid:   {Min: 1500, Max: 3500, Weight: 1.0},
			SignalGainReductionHeavy: {Min: 0.3, Max: 0.8, Weight: 1.2},
		},
		RiskWeights: map[RiskKind]float64{
			RiskMasking: 0.8, RiskClipping: 1.2, RiskTranslation: 1.3,
			RiskPhaseCollapse: 0.7, RiskOverCompression: 1.1,
			RiskVocalIntelligibility: 0.9, RiskLowEndMasking: 1.4,
			RiskArtifact: 1.0, RiskDynamicsLoss: 1.0,
		},
	},
	StyleDrill: {
		Tag: StyleDrill,
		Signals: map[string]SignalRange{
			SignalLoudnessIntegrated: {Min: -8, Max: -5, Weight: 1.4},
			SignalCrestFactor:        {Min: 3, Max: 6, Weight: 1.5},
			SignalTransientSharpness: {Min: 0.7, Max: 1.0, Weight: 1.5},
			SignalSpectralCentroid:   {Min: 1200, Max: 3000, Weight: 1.0},
			SignalGainReductionHeavy: {Min: 0.4, Max: 0.9, Weight: 1.3},
		},
		RiskWeights: map[RiskKind]float64{
			RiskMasking: 0.9, RiskClipping: 1.3, RiskTranslation: 1.4,
			RiskPhaseCollapse: 0.7, RiskOverCompression: 1.2,
			RiskVocalIntelligibility: 0.8, RiskLowEndMasking: 1.5,
			RiskArtifact: 1.1, RiskDynamicsLoss: 1.1,
		},
	},
	StyleMelodic: {
		Tag: StyleMelodic,
		Signals: map[string]SignalRange{
			SignalLoudnessIntegrated: {Min: -14, Max: -10, Weight: 1.3},
			SignalCrestFactor:        {Min: 8, Max: 14, Weight: 1.4},
			SignalTransientSharpness: {Min: 0.2, Max: 0.5, Weight: 1.0},
			SignalStereoWidth:        {Min: 0.5, Max: 0.9, Weight: 1.2},
			SignalSpectralCentroid:   {Min: 800, Max: 2200, Weight: 1.0},
		},
		RiskWeights: map[RiskKind]float64{
			RiskMasking: 1.0, RiskClipping: 0.6, RiskTranslation: 0.8,
			RiskPhaseCollapse: 1.2, RiskOverCompression: 0.7,
			RiskVocalIntelligibility: 1.3, RiskLowEndMasking: 0.8,
			RiskArtifact: 0.9, RiskDynamicsLoss: 1.4,
		},
	},
	StyleBoomBap: {
		Tag: StyleBoomBap,
		Signals: map[string]SignalRange{
			SignalLoudnessIntegrated: {Min: -13, Max: -9, Weight: 1.2},
			SignalCrestFactor:        {Min: 9, Max: 16, Weight: 1.4},
			SignalTransientSharpness: {Min: 0.45, Max: 0.8, Weight: 1.3},
			SignalSpectralCentroid:   {Min: 700, Max: 1800, Weight: 1.0},
			SignalGainReductionHeavy: {Min: 0.05, Max: 0.35, Weight: 1.0},
		},
		RiskWeights: map[RiskKind]float64{
			RiskMasking: 0.9, RiskClipping: 0.6, RiskTranslation: 0.9,
			RiskPhaseCollapse: 0.8, RiskOverCompression: 0.6,
			RiskVocalIntelligibility: 1.0, RiskLowEndMasking: 1.1,
			RiskArtifact: 0.8, RiskDynamicsLoss: 1.2,
		},
	},
	// StyleHybrid carries no narrow expected ranges of its own: it is never
	// selected by kernel fit, only forced when top-two likelihoods are
	// close and both substantial (spec §4.3 "Hybrid output is forced...").
	StyleHybrid: {
		Tag:         StyleHybrid,
		Signals:     map[string]SignalRange{},
		RiskWeights: map[RiskKind]float64{
			RiskMasking: 1.0, RiskClipping: 1.0, RiskTranslation: 1.0,
			RiskPhaseCollapse: 1.0, RiskOverCompression: 1.0,
			RiskVocalIntelligibility: 1.0, RiskLowEndMasking: 1.0,
			RiskArtifact: 1.0, RiskDynamicsLoss: 1.0,
		},
	},
}

// NonHybridStyles lists the profiles eligible for direct kernel-fit
// selection, excluding the forced-only hybrid profile.
var NonHybridStyles = []StyleTag{StyleTrap, StyleDrill, StyleMelodic, StyleBoomBap}

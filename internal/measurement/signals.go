package measurement

// ExtractSignalVector flattens a Bundle into the named decision-relevant
// signals consumed by the classifier, decision engine and drift detector
// (spec §4.3, §4.4, §4.6). A signal absent from the bundle, or whose
// underlying field is null, is simply omitted — callers must treat a
// missing key as "unknown", never as zero.
func ExtractSignalVector(b *Bundle) SignalVector {
	sv := make(SignalVector)

	if r, ok := b.Get("loudness"); ok {
		lr := r.(LoudnessRecord)
		setIfValid(sv, "loudness_integrated_lufs", lr.Integrated)
		setIfValid(sv, "loudness_range_lu", lr.Range)
	}
	if r, ok := b.Get("crest_stress"); ok {
		cr := r.(CrestStressRecord)
		setIfValid(sv, "crest_factor_db", cr.CrestFactorDB)
	}
	if r, ok := b.Get("transient"); ok {
		tr := r.(TransientRecord)
		setIfValid(sv, "transient_sharpness", tr.SharpnessNormalized)
	}
	if r, ok := b.Get("stereo_phase"); ok {
		sr := r.(StereoPhaseRecord)
		setIfValid(sv, "stereo_width", sr.Width)
		setIfValid(sv, "stereo_correlation", sr.CorrelationOverall)
	}
	if r, ok := b.Get("spectral_balance"); ok {
		sr := r.(SpectralRecord)
		setIfValid(sv, "spectral_centroid_hz", sr.Centroid)
		setIfValid(sv, "spectral_flatness", sr.Flatness)
	}
	if r, ok := b.Get("gain_reduction"); ok {
		gr := r.(GainReductionRecord)
		setIfValid(sv, "gain_reduction_heavy_fraction", gr.HeavyFraction)
	}
	if r, ok := b.Get("codec_stress"); ok {
		cs := r.(CodecStressRecord)
		setIfValid(sv, "codec_stress_score", cs.Score)
	}
	if r, ok := b.Get("macro_dynamics"); ok {
		mr := r.(MacroDynamicsRecord)
		sv["macro_dynamics_slope"] = Some(mr.Slope)
	}
	if r, ok := b.Get("car_system"); ok {
		cr := r.(CarSystemRecord)
		setIfValid(sv, "car_system_pumping_risk", cr.PumpingRisk)
	}

	return sv
}

func setIfValid(sv SignalVector, name string, n Null) {
	if n.Valid {
		sv[name] = n
	}
}

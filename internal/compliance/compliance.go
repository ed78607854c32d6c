// Package compliance implements the compliance validator of spec §4.12:
// per-platform loudness/peak/LRA conformance against a frozen
// specification table, minimal-adjustment calculation, and compliant-set
// discovery.
package compliance

import "math"

// Status is the closed per-metric/per-platform severity ladder (spec
// §4.12).
type Status string

const (
	StatusCompliant    Status = "COMPLIANT"
	StatusWarning      Status = "WARNING"
	StatusNonCompliant Status = "NON_COMPLIANT"
	StatusUnknown      Status = "UNKNOWN"
)

func statusRank(s Status) int {
	switch s {
	case StatusNonCompliant:
		return 3
	case StatusWarning:
		return 2
	case StatusUnknown:
		return 1
	default:
		return 0
	}
}

func worstStatus(a, b Status) Status {
	if statusRank(b) > statusRank(a) {
		return b
	}
	return a
}

// RangeSpec is a target±tolerance or min/max band for one metric.
type RangeSpec struct {
	HasTarget bool
	Target    float64
	Tolerance float64
	HasMin    bool
	Min       float64
	HasMax    bool
	Max       float64
	Recommended float64
	HasRecommended bool
}

// Platform is a frozen per-platform row (spec §3 "Platform Standard").
type Platform struct {
	ID                 string
	Category           string
	IntegratedLoudness RangeSpec
	TruePeak           RangeSpec // HasMax only, by convention
	LoudnessRange      RangeSpec
	ShortTermMax       RangeSpec // optional, HasMax only
	DialogLoudness     RangeSpec // optional target/tolerance
	NormalizationPolicy string
	Notes              string
}

// Platforms is the frozen, process-global platform table.
var Platforms = map[string]Platform{
	"spotify": {
		ID:       "spotify",
		Category: "streaming",
		IntegratedLoudness: RangeSpec{HasTarget: true, Target: -14, Tolerance: 1},
		TruePeak:           RangeSpec{HasMax: true, Max: -0.4},
		LoudnessRange:      RangeSpec{HasMin: true, Min: 4, HasMax: true, Max: 20, HasRecommended: true, Recommended: 10},
		NormalizationPolicy: "replaygain-track",
	},
	"youtube": {
		ID:       "youtube",
		Category: "streaming",
		IntegratedLoudness: RangeSpec{HasTarget: true, Target: -14, Tolerance: 1},
		TruePeak:           RangeSpec{HasMax: true, Max: -1},
		LoudnessRange:      RangeSpec{HasMin: true, Min: 4, HasMax: true, Max: 20},
		NormalizationPolicy: "normalize-down-only",
	},
	"apple-music": {
		ID:       "apple-music",
		Category: "streaming",
		IntegratedLoudness: RangeSpec{HasTarget: true, Target: -16, Tolerance: 1},
		TruePeak:           RangeSpec{HasMax: true, Max: -1},
		LoudnessRange:      RangeSpec{HasMin: true, Min: 4, HasMax: true, Max: 20},
		NormalizationPolicy: "sound-check",
	},
	"ebu-r128": {
		ID:       "ebu-r128",
		Category: "broadcast",
		IntegratedLoudness: RangeSpec{HasTarget: true, Target: -23, Tolerance: 0.5},
		TruePeak:           RangeSpec{HasMax: true, Max: -1},
		LoudnessRange:      RangeSpec{HasMin: true, Min: 5, HasMax: true, Max: 20},
		ShortTermMax:       RangeSpec{HasMax: true, Max: -18},
		NormalizationPolicy: "broadcast-metering",
	},
	"atsc-a85": {
		ID:       "atsc-a85",
		Category: "broadcast",
		IntegratedLoudness: RangeSpec{HasTarget: true, Target: -24, Tolerance: 2},
		TruePeak:           RangeSpec{HasMax: true, Max: -2},
		LoudnessRange:      RangeSpec{HasMin: true, Min: 5, HasMax: true, Max: 20},
		DialogLoudness:     RangeSpec{HasTarget: true, Target: -24, Tolerance: 2},
		NormalizationPolicy: "dialnorm",
	},
}

// checkRange evaluates one metric value against a RangeSpec: COMPLIANT
// inside the band, WARNING within a soft margin beyond it, NON_COMPLIANT
// further out, UNKNOWN if the spec names neither a target nor a min/max.
func checkRange(value float64, r RangeSpec) Status {
	switch {
	case r.HasTarget:
		diff := math.Abs(value - r.Target)
		switch {
		case diff <= r.Tolerance:
			return StatusCompliant
		case diff <= r.Tolerance*2:
			return StatusWarning
		default:
			return StatusNonCompliant
		}
	case r.HasMin && r.HasMax:
		margin := (r.Max - r.Min) * 0.1
		switch {
		case value >= r.Min && value <= r.Max:
			return StatusCompliant
		case value >= r.Min-margin && value <= r.Max+margin:
			return StatusWarning
		default:
			return StatusNonCompliant
		}
	case r.HasMax:
		const margin = 0.3
		switch {
		case value <= r.Max:
			return StatusCompliant
		case value <= r.Max+margin:
			return StatusWarning
		default:
			return StatusNonCompliant
		}
	case r.HasMin:
		switch {
		case value >= r.Min:
			return StatusCompliant
		default:
			return StatusNonCompliant
		}
	default:
		return StatusUnknown
	}
}

// Metrics is the subset of a measurement vector the compliance validator
// checks.
type Metrics struct {
	IntegratedLoudness float64
	TruePeak           float64
	LoudnessRange      float64
	ShortTermMax       float64
	HasShortTermMax    bool
	DialogLoudness     float64
	HasDialogLoudness  bool
}

// PlatformResult is one platform's outcome.
type PlatformResult struct {
	PlatformID string
	Status     Status
	PerMetric  map[string]Status
}

// Evaluate checks Metrics against one platform's frozen row.
func Evaluate(m Metrics, platformID string) PlatformResult {
	p, ok := Platforms[platformID]
	if !ok {
		return PlatformResult{PlatformID: platformID, Status: StatusUnknown, PerMetric: map[string]Status{}}
	}

	perMetric := map[string]Status{
		"integratedLoudness": checkRange(m.IntegratedLoudness, p.IntegratedLoudness),
		"truePeak":           checkRange(m.TruePeak, p.TruePeak),
		"loudnessRange":      checkRange(m.LoudnessRange, p.LoudnessRange),
	}
	if p.ShortTermMax.HasMax && m.HasShortTermMax {
		perMetric["shortTermMax"] = checkRange(m.ShortTermMax, p.ShortTermMax)
	}
	if p.DialogLoudness.HasTarget && m.HasDialogLoudness {
		perMetric["dialogLoudness"] = checkRange(m.DialogLoudness, p.DialogLoudness)
	}

	worst := StatusCompliant
	for _, s := range perMetric {
		worst = worstStatus(worst, s)
	}

	return PlatformResult{PlatformID: platformID, Status: worst, PerMetric: perMetric}
}

// MultiResult aggregates Evaluate across a platform list (spec §4.12,
// "order-independent across the platform list" per spec §8).
type MultiResult struct {
	ByPlatform       map[string]PlatformResult
	NonCompliantCount int
}

func EvaluateAll(m Metrics, platformIDs []string) MultiResult {
	result := MultiResult{ByPlatform: make(map[string]PlatformResult, len(platformIDs))}
	for _, id := range platformIDs {
		r := Evaluate(m, id)
		result.ByPlatform[id] = r
		if r.Status == StatusNonCompliant {
			result.NonCompliantCount++
		}
	}
	return result
}

// Adjustment is one corrective delta calculateAdjustments proposes.
type Adjustment struct {
	Kind   string // "gain" | "limit" | "compress"
	Metric string
	DeltaDB float64
}

// CalculateAdjustments implements `calculateAdjustments(metrics,
// platformId)`: the minimal set of gain/limit/compress deltas needed to
// bring Metrics into compliance.
func CalculateAdjustments(m Metrics, platformID string) []Adjustment {
	p, ok := Platforms[platformID]
	if !ok {
		return nil
	}
	var adjustments []Adjustment

	if p.IntegratedLoudness.HasTarget {
		diff := p.IntegratedLoudness.Target - m.IntegratedLoudness
		if math.Abs(diff) > p.IntegratedLoudness.Tolerance {
			adjustments = append(adjustments, Adjustment{Kind: "gain", Metric: "integratedLoudness", DeltaDB: diff})
		}
	}
	if p.TruePeak.HasMax && m.TruePeak > p.TruePeak.Max {
		adjustments = append(adjustments, Adjustment{Kind: "limit", Metric: "truePeak", DeltaDB: p.TruePeak.Max - m.TruePeak})
	}
	if p.LoudnessRange.HasMax && m.LoudnessRange > p.LoudnessRange.Max {
		adjustments = append(adjustments, Adjustment{Kind: "compress", Metric: "loudnessRange", DeltaDB: p.LoudnessRange.Max - m.LoudnessRange})
	}
	if p.LoudnessRange.HasMin && m.LoudnessRange < p.LoudnessRange.Min {
		adjustments = append(adjustments, Adjustment{Kind: "compress", Metric: "loudnessRange", DeltaDB: p.LoudnessRange.Min - m.LoudnessRange})
	}

	return adjustments
}

// FindCompliantPlatforms implements `findCompliantPlatforms`: returns the
// subset of the full platform table a given metric vector already
// satisfies (no WARNING or worse on any checked metric).
func FindCompliantPlatforms(m Metrics) []string {
	var ids []string
	for id := range Platforms {
		if Evaluate(m, id).Status == StatusCompliant {
			ids = append(ids, id)
		}
	}
	return ids
}

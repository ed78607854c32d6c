package lineage

import "math"

// MetricSeverity is the closed per-metric change-magnitude bucket.
type MetricSeverity string

const (
	SeverityNone     MetricSeverity = "NONE"
	SeverityMinor    MetricSeverity = "MINOR"
	SeverityModerate MetricSeverity = "MODERATE"
	SeverityMajor    MetricSeverity = "MAJOR"
	SeveritySevere   MetricSeverity = "SEVERE"
)

// metricThresholds is the frozen per-metric severity-bucket threshold
// table (spec §4.11): {minor, moderate, major, severe}.
var metricThresholds = map[string][4]float64{
	"integratedLoudness": {1, 3, 6, 12},
	"truePeak":           {0.5, 1, 2, 3},
	"dynamicRange":       {1, 2, 4, 8},
	"width":              {0.05, 0.15, 0.30, 0.50},
	"spectralBalance":    {1, 3, 6, 10},
}

func severityBucket(metric string, absChange float64) MetricSeverity {
	t, ok := metricThresholds[metric]
	if !ok {
		return SeverityNone
	}
	switch {
	case absChange < t[0]:
		return SeverityNone
	case absChange < t[1]:
		return SeverityMinor
	case absChange < t[2]:
		return SeverityModerate
	case absChange < t[3]:
		return SeverityMajor
	default:
		return SeveritySevere
	}
}

// MetricDelta is one metric's (to - from) change plus its severity bucket.
type MetricDelta struct {
	Change   float64
	Severity MetricSeverity
}

// Delta is the per-edge output of CalculateDelta (spec §4.11).
type Delta struct {
	PerMetric map[string]MetricDelta
}

// CalculateDelta implements `calculateDelta(parentMetrics, childMetrics)`.
func CalculateDelta(parent, child Metrics) Delta {
	raw := map[string]float64{
		"integratedLoudness": child.IntegratedLoudness - parent.IntegratedLoudness,
		"truePeak":           child.TruePeak - parent.TruePeak,
		"dynamicRange":       child.DynamicRange - parent.DynamicRange,
		"width":              child.Width - parent.Width,
		"spectralBalance":    child.SpectralBalance - parent.SpectralBalance,
	}

	d := Delta{PerMetric: make(map[string]MetricDelta, len(raw))}
	for name, change := range raw {
		d.PerMetric[name] = MetricDelta{Change: change, Severity: severityBucket(name, math.Abs(change))}
	}
	return d
}

// TransformationPattern is the closed inferred-transformation kind set
// (spec §4.11).
type TransformationPattern string

const (
	PatternLevelChange  TransformationPattern = "LEVEL_CHANGE"
	PatternDynamics     TransformationPattern = "DYNAMICS"
	PatternEQ           TransformationPattern = "EQ"
	PatternReverb       TransformationPattern = "REVERB"
	PatternStereo       TransformationPattern = "STEREO"
	PatternFormat       TransformationPattern = "FORMAT"
	PatternRestoration  TransformationPattern = "RESTORATION"
	PatternMixed        TransformationPattern = "MIXED"
	PatternUnknown      TransformationPattern = "UNKNOWN"
)

// patternSignature names which metrics a pattern expects to move
// (observed) versus stay put (preserved); metrics absent from both lists
// are ignored when scoring that pattern.
type patternSignature struct {
	observed  []string
	preserved []string
}

// transformationTable is the frozen pattern table scored by
// InferTransformation (spec §4.11).
var transformationTable = map[TransformationPattern]patternSignature{
	PatternLevelChange: {
		observed:  []string{"integratedLoudness", "truePeak"},
		preserved: []string{"dynamicRange", "width", "spectralBalance"},
	},
	PatternDynamics: {
		observed:  []string{"dynamicRange"},
		preserved: []string{"width", "spectralBalance"},
	},
	PatternEQ: {
		observed:  []string{"spectralBalance"},
		preserved: []string{"dynamicRange", "width"},
	},
	PatternStereo: {
		observed:  []string{"width"},
		preserved: []string{"dynamicRange", "spectralBalance"},
	},
	PatternReverb: {
		observed:  []string{"dynamicRange", "spectralBalance"},
		preserved: []string{"width"},
	},
	PatternFormat: {
		observed:  []string{},
		preserved: []string{"integratedLoudness", "truePeak", "dynamicRange", "width", "spectralBalance"},
	},
	PatternRestoration: {
		observed:  []string{"spectralBalance", "dynamicRange", "truePeak"},
		preserved: []string{},
	},
}

func moved(d Delta, metric string) bool {
	return d.PerMetric[metric].Severity != SeverityNone
}

// TransformationMatch is the output of InferTransformation.
type TransformationMatch struct {
	Pattern    TransformationPattern
	Confidence float64
}

// InferTransformation implements `inferTransformation(delta)`: scores the
// observed-vs-preserved metric sets against the frozen pattern table and
// returns the best match with a confidence (fraction of that pattern's
// named metrics whose moved/preserved state it correctly predicted).
func InferTransformation(d Delta) TransformationMatch {
	best := TransformationMatch{Pattern: PatternUnknown, Confidence: 0}

	for pattern, sig := range transformationTable {
		total := len(sig.observed) + len(sig.preserved)
		if total == 0 {
			continue
		}
		hits := 0
		for _, m := range sig.observed {
			if moved(d, m) {
				hits++
			}
		}
		for _, m := range sig.preserved {
			if !moved(d, m) {
				hits++
			}
		}
		score := float64(hits) / float64(total)
		if score > best.Confidence {
			best = TransformationMatch{Pattern: pattern, Confidence: score}
		}
	}

	movedCount := 0
	for _, m := range []string{"integratedLoudness", "truePeak", "dynamicRange", "width", "spectralBalance"} {
		if moved(d, m) {
			movedCount++
		}
	}
	if movedCount >= 3 && best.Confidence < 0.8 {
		return TransformationMatch{Pattern: PatternMixed, Confidence: float64(movedCount) / 5}
	}
	if best.Confidence == 0 {
		return TransformationMatch{Pattern: PatternUnknown, Confidence: 0}
	}
	return best
}

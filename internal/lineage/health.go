package lineage

import "math"

// HealthStatus is the closed aggregate lineage-health classification
// (spec §4.11).
type HealthStatus string

const (
	HealthHealthy    HealthStatus = "HEALTHY"
	HealthDegraded   HealthStatus = "DEGRADED"
	HealthConcerning HealthStatus = "CONCERNING"
	HealthCritical   HealthStatus = "CRITICAL"
)

// QualityTrend is the closed cross-generation trend classification (spec
// §4.11).
type QualityTrend string

const (
	TrendImproving  QualityTrend = "IMPROVING"
	TrendStable     QualityTrend = "STABLE"
	TrendDegrading  QualityTrend = "DEGRADING"
	TrendFluctuating QualityTrend = "FLUCTUATING"
)

// GenerationalPattern is the closed cross-generation pattern set (spec
// §4.11).
type GenerationalPattern string

const (
	PatternLoudnessEscalation    GenerationalPattern = "LOUDNESS_ESCALATION"
	PatternDynamicCompression    GenerationalPattern = "DYNAMIC_COMPRESSION"
	PatternOscillatingChanges    GenerationalPattern = "OSCILLATING_CHANGES"
	PatternSampleRateDegradation GenerationalPattern = "SAMPLE_RATE_DEGRADATION"
)

// CumulativeAnalysis is the multi-generation aggregate spec §4.11 names.
type CumulativeAnalysis struct {
	Generations        int
	CumulativeAbsDelta map[string]float64
	PerGenerationLoss  []float64 // one entry per edge, dynamicRange decrease only
}

// HealthReport is the output of AnalyzeLineageHealth (spec §4.11).
type HealthReport struct {
	Status    HealthStatus
	Cumulative CumulativeAnalysis
	Patterns  []GenerationalPattern
	Trend     QualityTrend
}

func healthFromSeverity(s MetricSeverity) HealthStatus {
	switch s {
	case SeveritySevere:
		return HealthCritical
	case SeverityMajor:
		return HealthConcerning
	case SeverityModerate:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

func healthRank(h HealthStatus) int {
	switch h {
	case HealthCritical:
		return 3
	case HealthConcerning:
		return 2
	case HealthDegraded:
		return 1
	default:
		return 0
	}
}

// AnalyzeLineageHealth implements `analyzeLineageHealth(versions) →
// HealthReport` (spec §4.11): walks every parent→child edge in
// chronological order, aggregates edge severities, and detects
// cross-generation patterns.
func AnalyzeLineageHealth(versions []Version) HealthReport {
	sorted := append([]Version(nil), versions...)
	sortByCreatedAt(sorted)

	byID := make(map[string]Version, len(sorted))
	for _, v := range sorted {
		byID[v.ID] = v
	}

	worst := HealthHealthy
	cumulative := CumulativeAnalysis{CumulativeAbsDelta: make(map[string]float64)}

	var loudnessDeltas, drDeltas []float64

	for _, v := range sorted {
		if v.ParentID == "" {
			continue
		}
		parent, ok := byID[v.ParentID]
		if !ok {
			continue
		}
		d := CalculateDelta(parent.Metrics, v.Metrics)
		cumulative.Generations++

		edgeWorst := HealthHealthy
		for name, md := range d.PerMetric {
			cumulative.CumulativeAbsDelta[name] += math.Abs(md.Change)
			if h := healthFromSeverity(md.Severity); healthRank(h) > healthRank(edgeWorst) {
				edgeWorst = h
			}
		}
		if healthRank(edgeWorst) > healthRank(worst) {
			worst = edgeWorst
		}

		drChange := d.PerMetric["dynamicRange"].Change
		cumulative.PerGenerationLoss = append(cumulative.PerGenerationLoss, math.Min(drChange, 0))

		loudnessDeltas = append(loudnessDeltas, d.PerMetric["integratedLoudness"].Change)
		drDeltas = append(drDeltas, drChange)
	}

	patterns := detectGenerationalPatterns(loudnessDeltas, drDeltas, sorted)
	trend := trendFrom(patterns, loudnessDeltas, drDeltas)

	return HealthReport{
		Status:     worst,
		Cumulative: cumulative,
		Patterns:   patterns,
		Trend:      trend,
	}
}

func sortByCreatedAt(versions []Version) {
	for i := 1; i < len(versions); i++ {
		j := i
		for j > 0 && versions[j-1].CreatedAtUnix > versions[j].CreatedAtUnix {
			versions[j-1], versions[j] = versions[j], versions[j-1]
			j--
		}
	}
}

func allPositive(deltas []float64) bool {
	if len(deltas) == 0 {
		return false
	}
	for _, d := range deltas {
		if d <= 0 {
			return false
		}
	}
	return true
}

func allNegative(deltas []float64) bool {
	if len(deltas) == 0 {
		return false
	}
	for _, d := range deltas {
		if d >= 0 {
			return false
		}
	}
	return true
}

func sum(deltas []float64) float64 {
	var s float64
	for _, d := range deltas {
		s += d
	}
	return s
}

func signFlips(deltas []float64) int {
	flips := 0
	for i := 1; i < len(deltas); i++ {
		if (deltas[i-1] > 0) != (deltas[i] > 0) {
			flips++
		}
	}
	return flips
}

func detectGenerationalPatterns(loudnessDeltas, drDeltas []float64, versions []Version) []GenerationalPattern {
	var patterns []GenerationalPattern

	if allPositive(loudnessDeltas) && sum(loudnessDeltas) > 2 {
		patterns = append(patterns, PatternLoudnessEscalation)
	}
	if allNegative(drDeltas) && sum(drDeltas) < -2 {
		patterns = append(patterns, PatternDynamicCompression)
	}
	if n := len(loudnessDeltas); n > 1 && signFlips(loudnessDeltas) >= n-1 {
		patterns = append(patterns, PatternOscillatingChanges)
	}
	if sampleRateDegrades(versions) {
		patterns = append(patterns, PatternSampleRateDegradation)
	}

	return patterns
}

func sampleRateDegrades(versions []Version) bool {
	byID := make(map[string]Version, len(versions))
	for _, v := range versions {
		byID[v.ID] = v
	}
	degradingEdges := 0
	totalEdges := 0
	for _, v := range versions {
		if v.ParentID == "" {
			continue
		}
		parent, ok := byID[v.ParentID]
		if !ok || parent.Metrics.SampleRateHz == 0 || v.Metrics.SampleRateHz == 0 {
			continue
		}
		totalEdges++
		if v.Metrics.SampleRateHz < parent.Metrics.SampleRateHz {
			degradingEdges++
		}
	}
	return totalEdges > 0 && degradingEdges == totalEdges
}

func trendFrom(patterns []GenerationalPattern, loudnessDeltas, drDeltas []float64) QualityTrend {
	for _, p := range patterns {
		if p == PatternOscillatingChanges {
			return TrendFluctuating
		}
	}
	for _, p := range patterns {
		if p == PatternLoudnessEscalation || p == PatternDynamicCompression || p == PatternSampleRateDegradation {
			return TrendDegrading
		}
	}
	if sum(drDeltas) > 0.5 {
		return TrendImproving
	}
	if sum(drDeltas) < -0.5 || sum(loudnessDeltas) > 0.5 {
		return TrendDegrading
	}
	return TrendStable
}

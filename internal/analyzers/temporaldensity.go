package analyzers

import (
	"context"
	"sort"

	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// TemporalDensityAnalyzer implements the temporal density mapper of spec
// §4.2: windowed short-term loudness bucketed into percentile sections,
// merged below a minimum duration, with a hook pointer.
type TemporalDensityAnalyzer struct {
	WindowSec float64
}

func (TemporalDensityAnalyzer) Name() string { return "temporal_density" }

const temporalWindowSec = 1.0

func (a TemporalDensityAnalyzer) Analyze(ctx context.Context, adapter probe.Adapter, filePath string, opts Options) (measurement.Result, error) {
	windowed, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindWindowedStats, WindowMs: temporalWindowSec * 1000})
	if err != nil {
		if _, ok := asProbeErr(err); ok {
			return measurement.TemporalRecord{Status: measurement.TemporalUnknown, HookIndex: -1}, nil
		}
		return nil, err
	}
	if len(windowed.WindowsDb) < 3 {
		return measurement.TemporalRecord{Status: measurement.TemporalUnknown, HookIndex: -1}, nil
	}

	levels := bucketPercentiles(windowed.WindowsDb)
	minDur := opts.MinSectionDurSec
	if minDur <= 0 {
		minDur = 4
	}

	sections := buildRawSections(windowed.WindowsDb, levels, temporalWindowSec)
	sections = mergeShortSections(sections, minDur)
	classifySections(sections)

	hookIndex := findHook(sections)

	return measurement.TemporalRecord{
		Sections:  sections,
		HookIndex: hookIndex,
		Status:    measurement.TemporalOK,
	}, nil
}

// bucketPercentiles assigns each window a level class by its percentile
// rank within the whole asset: <25th QUIET, <50th MODERATE, <75th LOUD,
// else PEAK.
func bucketPercentiles(db []float64) []string {
	sorted := append([]float64(nil), db...)
	sort.Float64s(sorted)

	rank := func(v float64) float64 {
		i := sort.SearchFloat64s(sorted, v)
		return float64(i) / float64(len(sorted))
	}

	levels := make([]string, len(db))
	for i, v := range db {
		r := rank(v)
		switch {
		case r < 0.25:
			levels[i] = "QUIET"
		case r < 0.5:
			levels[i] = "MODERATE"
		case r < 0.75:
			levels[i] = "LOUD"
		default:
			levels[i] = "PEAK"
		}
	}
	return levels
}

func buildRawSections(db []float64, levels []string, windowSec float64) []measurement.Section {
	var sections []measurement.Section
	start := 0
	for i := 1; i <= len(levels); i++ {
		if i == len(levels) || levels[i] != levels[start] {
			sections = append(sections, measurement.Section{
				StartSec:   float64(start) * windowSec,
				EndSec:     float64(i) * windowSec,
				LevelClass: levels[start],
				Confidence: 1.0,
			})
			start = i
		}
	}
	return sections
}

func mergeShortSections(sections []measurement.Section, minDur float64) []measurement.Section {
	if len(sections) <= 1 {
		return sections
	}
	merged := []measurement.Section{sections[0]}
	for _, s := range sections[1:] {
		dur := s.EndSec - s.StartSec
		last := &merged[len(merged)-1]
		if dur < minDur {
			// Fold a too-short section into the preceding one.
			last.EndSec = s.EndSec
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func classifySections(sections []measurement.Section) {
	levelRank := map[string]int{"QUIET": 0, "MODERATE": 1, "LOUD": 2, "PEAK": 3}
	for i := range sections {
		switch {
		case i == 0:
			sections[i].TrendClass = "RISING"
		case levelRank[sections[i].LevelClass] > levelRank[sections[i-1].LevelClass]:
			sections[i].TrendClass = "RISING"
		case levelRank[sections[i].LevelClass] < levelRank[sections[i-1].LevelClass]:
			sections[i].TrendClass = "FALLING"
		default:
			sections[i].TrendClass = "STABLE"
		}

		switch {
		case i == 0:
			sections[i].TypeClass = "INTRO"
		case i == len(sections)-1:
			sections[i].TypeClass = "OUTRO"
		case sections[i].LevelClass == "PEAK":
			sections[i].TypeClass = "HOOK"
		case sections[i].TrendClass == "RISING":
			sections[i].TypeClass = "BUILD"
		default:
			sections[i].TypeClass = "VERSE"
		}
	}
}

// findHook returns the index of the highest-energy section strictly after
// the intro and before the outro, or -1 if none qualifies.
func findHook(sections []measurement.Section) int {
	if len(sections) < 3 {
		return -1
	}
	levelRank := map[string]int{"QUIET": 0, "MODERATE": 1, "LOUD": 2, "PEAK": 3}
	best := -1
	bestRank := -1
	for i := 1; i < len(sections)-1; i++ {
		r := levelRank[sections[i].LevelClass]
		if r > bestRank {
			bestRank = r
			best = i
		}
	}
	return best
}

func (a TemporalDensityAnalyzer) QuickCheck(ctx context.Context, adapter probe.Adapter, filePath string) (ShortResult, error) {
	rec, err := a.Analyze(ctx, adapter, filePath, DefaultOptions())
	if err != nil {
		return ShortResult{}, err
	}
	tr := rec.(measurement.TemporalRecord)
	return ShortResult{Status: string(tr.Status)}, nil
}

// Package risk implements the cumulative-risk subsystem of spec §4.9:
// preset→stage→weight tables, base/repeat/accumulation scoring, level
// thresholds, headroom flags and proposed-job evaluation.
package risk

// Category is a closed processing-stage category used for per-category
// repeat limits and headroom flags.
type Category string

const (
	CategoryEQ            Category = "EQ"
	CategoryDynamics      Category = "DYNAMICS"
	CategoryMastering     Category = "MASTERING"
	CategoryStereo        Category = "STEREO"
	CategoryNormalization Category = "NORMALIZATION"
)

// PresetInfo is one frozen preset→category→weight table row.
type PresetInfo struct {
	Category       Category
	Weight         float64
	RecommendedMax int
}

// RepeatMultiplier scales the excess-count penalty for any stage beyond
// its recommended maximum (spec §4.9).
const RepeatMultiplier = 1.5

// AccumulationWeight scales an optional externally-supplied accumulation
// score into the final risk total.
const AccumulationWeight = 0.5

// Presets is the frozen, process-global preset table.
var Presets = map[string]PresetInfo{
	"master-standard":   {Category: CategoryMastering, Weight: 30, RecommendedMax: 1},
	"master-streaming":  {Category: CategoryMastering, Weight: 30, RecommendedMax: 1},
	"master-broadcast":  {Category: CategoryMastering, Weight: 30, RecommendedMax: 1},
	"eq-warm":           {Category: CategoryEQ, Weight: 15, RecommendedMax: 2},
	"eq-bright":         {Category: CategoryEQ, Weight: 15, RecommendedMax: 2},
	"eq-corrective":     {Category: CategoryEQ, Weight: 10, RecommendedMax: 2},
	"dynamics-gentle":   {Category: CategoryDynamics, Weight: 15, RecommendedMax: 2},
	"dynamics-heavy":    {Category: CategoryDynamics, Weight: 25, RecommendedMax: 2},
	"stereo-widen":      {Category: CategoryStereo, Weight: 10, RecommendedMax: 1},
	"stereo-narrow":     {Category: CategoryStereo, Weight: 10, RecommendedMax: 1},
	"normalize-lufs":    {Category: CategoryNormalization, Weight: 5, RecommendedMax: 3},
}

// Level is the closed cumulative-risk level set (spec §4.9).
type Level string

const (
	LevelPristine  Level = "PRISTINE"
	LevelLow       Level = "LOW"
	LevelModerate  Level = "MODERATE"
	LevelHigh      Level = "HIGH"
	LevelExcessive Level = "EXCESSIVE"
)

func levelFor(score float64) Level {
	switch {
	case score < 10:
		return LevelPristine
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelModerate
	case score < 75:
		return LevelHigh
	default:
		return LevelExcessive
	}
}

// OverLimit describes one category whose history exceeds its recommended
// maximum.
type OverLimit struct {
	Category       Category
	Count          int
	MaxRecommended int
}

// HeadroomFlags are derived from the risk points remaining below the
// 100-point cap (spec §4.9): a category can be added while it is not over
// its limit, more than 10 points remain, and the level is not EXCESSIVE.
type HeadroomFlags struct {
	CanAddEQ            bool
	CanAddDynamics      bool
	CanAddMastering     bool
	CanAddStereo        bool
	CanAddNormalization bool
}

// RiskReport is the output of CalculateRisk (spec §4.9).
type RiskReport struct {
	Score          float64
	Level          Level
	CategoryCounts map[Category]int
	OverLimits     []OverLimit
	Headroom       HeadroomFlags
}

func categoryCounts(history []string) map[Category]int {
	counts := make(map[Category]int)
	for _, presetID := range history {
		if info, ok := Presets[presetID]; ok {
			counts[info.Category]++
		}
	}
	return counts
}

func baseScore(history []string) float64 {
	var sum float64
	for _, presetID := range history {
		if info, ok := Presets[presetID]; ok {
			sum += info.Weight
		}
	}
	return sum
}

func repeatPenaltyAndOverLimits(counts map[Category]int) (float64, []OverLimit) {
	var penalty float64
	var overLimits []OverLimit

	// maxByCategory/weightByCategory are derived deterministically (by
	// taking the smallest recommended maximum and the highest weight seen
	// per category) rather than by first
	// map-iteration order, which Go does not guarantee to be stable.
	maxByCategory := make(map[Category]int)
	weightByCategory := make(map[Category]float64)
	for _, info := range Presets {
		if info.RecommendedMax > 0 {
			if existing, ok := maxByCategory[info.Category]; !ok || info.RecommendedMax < existing {
				maxByCategory[info.Category] = info.RecommendedMax
			}
		}
		if info.Weight > weightByCategory[info.Category] {
			weightByCategory[info.Category] = info.Weight
		}
	}

	for cat, count := range counts {
		maxRec := maxByCategory[cat]
		if count > maxRec {
			excess := count - maxRec
			penalty += float64(excess) * weightByCategory[cat] * RepeatMultiplier
			overLimits = append(overLimits, OverLimit{Category: cat, Count: count, MaxRecommended: maxRec})
		}
	}
	return penalty, overLimits
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CalculateRisk implements `calculateRisk(history, accumulationScore?) →
// RiskReport` (spec §4.9).
func CalculateRisk(history []string, accumulationScore float64) RiskReport {
	counts := categoryCounts(history)
	base := baseScore(history)
	repeat, overLimits := repeatPenaltyAndOverLimits(counts)

	score := clamp(base+repeat+AccumulationWeight*accumulationScore, 0, 100)
	level := levelFor(score)

	isOverLimit := func(cat Category) bool {
		for _, ol := range overLimits {
			if ol.Category == cat {
				return true
			}
		}
		return false
	}

	remaining := 100 - score
	canAdd := func(cat Category) bool {
		return !isOverLimit(cat) && remaining > 10 && level != LevelExcessive
	}

	return RiskReport{
		Score:          score,
		Level:          level,
		CategoryCounts: counts,
		OverLimits:     overLimits,
		Headroom: HeadroomFlags{
			CanAddEQ:            canAdd(CategoryEQ),
			CanAddDynamics:      canAdd(CategoryDynamics),
			CanAddMastering:     canAdd(CategoryMastering),
			CanAddStereo:        canAdd(CategoryStereo),
			CanAddNormalization: canAdd(CategoryNormalization),
		},
	}
}

// ProposedJobEvaluation is the output of EvaluateProposedJob (spec §4.9).
type ProposedJobEvaluation struct {
	CrossesLevelBoundary bool
	ExceedsRecommendedMax bool
	ScoreDelta           float64
	ProjectedLevel       Level
}

// EvaluateProposedJob implements `evaluateProposedJob(history, preset)`.
func EvaluateProposedJob(history []string, preset string) ProposedJobEvaluation {
	before := CalculateRisk(history, 0)
	after := CalculateRisk(append(append([]string(nil), history...), preset), 0)

	exceedsMax := false
	if info, ok := Presets[preset]; ok {
		projectedCount := after.CategoryCounts[info.Category]
		if projectedCount > info.RecommendedMax {
			exceedsMax = true
		}
	}

	return ProposedJobEvaluation{
		CrossesLevelBoundary:  before.Level != after.Level,
		ExceedsRecommendedMax: exceedsMax,
		ScoreDelta:            after.Score - before.Score,
		ProjectedLevel:        after.Level,
	}
}

package classifier

import (
	"sort"

	"github.com/meridian-audio/sentinel/internal/measurement"
)

// UncertainConfidence is the threshold below which a classification is
// flagged uncertain regardless of the top/second delta (spec §3).
const UncertainConfidence = 0.5

// UncertainDelta is the minimum separation between the top two
// likelihoods required to avoid an uncertain flag (spec §3).
const UncertainDelta = 0.15

// ConflictThreshold is the likelihood floor above which two or more
// profiles are considered to "fit" for conflicting-signal detection
// (spec §4.3).
const ConflictThreshold = 0.25

// HybridDelta and HybridFloor implement the forced-hybrid rule of spec
// §4.3: "Hybrid output is forced when top-two delta < 0.1 AND both > 0.25".
const (
	HybridDelta = 0.1
	HybridFloor = 0.25
)

// Classification is the classifier's output (spec §3).
type Classification struct {
	Primary            StyleTag
	Likelihoods        map[StyleTag]float64
	Confidence         float64
	IsUncertain        bool
	ConflictingSignals bool
}

// characteristicSignal maps each non-hybrid style to the single signal
// that most distinguishes it, used to decide whether two co-fitting
// profiles represent a genuine conflict (non-adjacent characteristics)
// rather than two plausible neighbors.
var characteristicSignal = map[StyleTag]string{
	StyleTrap:    SignalTransientSharpness,
	StyleDrill:   SignalTransientSharpness,
	StyleMelodic: SignalCrestFactor,
	StyleBoomBap: SignalCrestFactor,
}

// Classify implements `classify(signals) → Classification` (spec §4.3).
func Classify(signals measurement.SignalVector) Classification {
	raw := make(map[StyleTag]float64, len(NonHybridStyles))
	for _, tag := range NonHybridStyles {
		raw[tag] = unnormalizedLikelihood(Profiles[tag], signals)
	}

	total := 0.0
	for _, v := range raw {
		total += v
	}

	likelihoods := make(map[StyleTag]float64, len(raw)+1)
	if total <= 0 {
		// No profile fit any signal at all; spread evenly rather than
		// dividing by zero.
		even := 1.0 / float64(len(raw))
		for tag := range raw {
			likelihoods[tag] = even
		}
	} else {
		for tag, v := range raw {
			likelihoods[tag] = v / total
		}
	}

	order := sortedByLikelihood(likelihoods)
	top := order[0]
	second := order[1]
	topL, secondL := likelihoods[top], likelihoods[second]

	primary := top
	confidence := topL

	if topL-secondL < HybridDelta && topL > HybridFloor && secondL > HybridFloor {
		// Re-key the top style's share under StyleHybrid rather than adding
		// a new entry, so the map still sums to 1: this renames one slot,
		// it doesn't introduce one.
		delete(likelihoods, top)
		primary = StyleHybrid
		likelihoods[StyleHybrid] = topL
		confidence = topL
	}

	conflicting := detectConflict(likelihoods, order)

	isUncertain := confidence < UncertainConfidence || (topL-secondL) < UncertainDelta

	return Classification{
		Primary:            primary,
		Likelihoods:        likelihoods,
		Confidence:         confidence,
		IsUncertain:        isUncertain,
		ConflictingSignals: conflicting,
	}
}

// unnormalizedLikelihood sums per-signal fit × weight across a profile's
// expected ranges. Missing signals (nulls) contribute a neutral weight of
// 1 to every profile (spec §4.3).
func unnormalizedLikelihood(p Profile, signals measurement.SignalVector) float64 {
	sum := 0.0
	for name, rng := range p.Signals {
		v, ok := signals.Get(name)
		if !ok {
			sum += 1.0
			continue
		}
		sum += kernelFit(v, rng.Min, rng.Max) * rng.Weight
	}
	return sum
}

// kernelFit is a shaped kernel over [min,max]: 1.0 centered, falling off
// linearly to 0 at twice the range's half-width beyond either edge, and 0
// outside that. Values strictly inside [min,max] score a full 1.0.
func kernelFit(v, min, max float64) float64 {
	if v >= min && v <= max {
		return 1.0
	}
	half := (max - min) / 2
	if half <= 0 {
		half = 1
	}
	var dist float64
	if v < min {
		dist = min - v
	} else {
		dist = v - max
	}
	fallOff := 1.0 - dist/(2*half)
	if fallOff < 0 {
		return 0
	}
	return fallOff
}

func sortedByLikelihood(likelihoods map[StyleTag]float64) []StyleTag {
	tags := make([]StyleTag, 0, len(likelihoods))
	for t := range likelihoods {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if likelihoods[tags[i]] != likelihoods[tags[j]] {
			return likelihoods[tags[i]] > likelihoods[tags[j]]
		}
		return tags[i] < tags[j] // deterministic tiebreak
	})
	return tags
}

// detectConflict reports true when ≥2 profiles clear ConflictThreshold and
// their characteristic signals are not adjacent — i.e. they pull the
// classification toward materially different production choices (spec
// §4.3's low-BPM-vs-high-transient-density example).
func detectConflict(likelihoods map[StyleTag]float64, order []StyleTag) bool {
	var fitting []StyleTag
	for _, tag := range order {
		if tag == StyleHybrid {
			continue
		}
		if likelihoods[tag] >= ConflictThreshold {
			fitting = append(fitting, tag)
		}
	}
	if len(fitting) < 2 {
		return false
	}
	for i := 0; i < len(fitting); i++ {
		for j := i + 1; j < len(fitting); j++ {
			if characteristicSignal[fitting[i]] != characteristicSignal[fitting[j]] {
				return true
			}
		}
	}
	return false
}

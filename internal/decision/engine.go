// Package decision implements the decision engine of spec §4.4: a pure,
// frozen ordered rule list evaluated against signals, risk scores and a
// style classification to produce a Decision Bundle.
package decision

import (
	"fmt"
	"sort"

	"github.com/meridian-audio/sentinel/internal/classifier"
	"github.com/meridian-audio/sentinel/internal/measurement"
)

// Constraint is one entry of a Decision Bundle's constraint map: a value
// plus the id of the rule that last wrote it.
type Constraint struct {
	Value      any
	SourceRule string
}

// Bundle is the Decision Engine's output (spec §3 "Decision Bundle").
type Bundle struct {
	AppliedRules []string
	Constraints  map[string]Constraint
	RiskWeights  map[classifier.RiskKind]float64
	Context      Context

	// pendingWrites buffers the firing rule's constraint writes until
	// Evaluate commits them under that rule's id and priority.
	pendingWrites []pendingWrite
}

// Context carries the inputs the rules were evaluated against, preserved
// on the bundle for downstream auditing.
type Context struct {
	Classification classifier.Classification
	RawSignals     measurement.SignalVector
	Risks          map[classifier.RiskKind]float64
}

// Rule is one entry of the frozen ordered rule list (spec §4.4).
type Rule struct {
	ID             string
	Priority       int
	AppliesToStyles []classifier.StyleTag // nil = applies to all styles
	Condition      func(signals measurement.SignalVector, risks map[classifier.RiskKind]float64, c classifier.Classification) bool
	Effect         func(b *Bundle)
}

func appliesTo(r Rule, tag classifier.StyleTag) bool {
	if len(r.AppliesToStyles) == 0 {
		return true
	}
	for _, t := range r.AppliesToStyles {
		if t == tag {
			return true
		}
	}
	return false
}

// Rules is the frozen, priority-ordered rule table. Higher Priority fires
// (and, on a tie for a constraint write, overrides) earlier.
var Rules = []Rule{
	{
		ID:       "clipping-hard-stop",
		Priority: 100,
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskClipping] >= 0.9
		},
		Effect: func(b *Bundle) {
			b.setConstraint("clippingHardStop", 100, true)
			b.RiskWeights[classifier.RiskClipping] *= 1.5
		},
	},
	{
		ID:       "phase-collapse-mono-check",
		Priority: 90,
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskPhaseCollapse] >= 0.6
		},
		Effect: func(b *Bundle) {
			b.setConstraint("requireMonoCompatibilityCheck", 90, true)
			b.RiskWeights[classifier.RiskPhaseCollapse] *= 1.3
		},
	},
	{
		ID:       "trap-low-end-priority",
		Priority: 70,
		AppliesToStyles: []classifier.StyleTag{classifier.StyleTrap, classifier.StyleDrill},
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskLowEndMasking] >= 0.4
		},
		Effect: func(b *Bundle) {
			b.setConstraint("eqFocus", 70, "low_end")
			b.RiskWeights[classifier.RiskLowEndMasking] *= 1.2
		},
	},
	{
		ID:       "melodic-dynamics-preservation",
		Priority: 65,
		AppliesToStyles: []classifier.StyleTag{classifier.StyleMelodic, classifier.StyleBoomBap},
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskDynamicsLoss] >= 0.4
		},
		Effect: func(b *Bundle) {
			b.setConstraint("limiterCeilingDB", 65, -1.0)
			b.RiskWeights[classifier.RiskDynamicsLoss] *= 1.25
		},
	},
	{
		ID:       "overcompression-soft-cap",
		Priority: 60,
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskOverCompression] >= 0.6
		},
		Effect: func(b *Bundle) {
			b.setConstraint("limiterCeilingDB", 60, -1.5)
		},
	},
	{
		ID:       "vocal-intelligibility-guard",
		Priority: 55,
		AppliesToStyles: []classifier.StyleTag{classifier.StyleMelodic},
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskVocalIntelligibility] >= 0.4
		},
		Effect: func(b *Bundle) {
			b.setConstraint("eqFocus", 55, "vocal_presence")
		},
	},
	{
		ID:       "artifact-risk-bitrate-floor",
		Priority: 40,
		Condition: func(_ measurement.SignalVector, risks map[classifier.RiskKind]float64, _ classifier.Classification) bool {
			return risks[classifier.RiskArtifact] >= 0.5
		},
		Effect: func(b *Bundle) {
			b.setConstraint("minDeliveryBitrateKbps", 40, 192)
		},
	},
	{
		ID:       "uncertain-classification-conservative",
		Priority: 20,
		Condition: func(_ measurement.SignalVector, _ map[classifier.RiskKind]float64, c classifier.Classification) bool {
			return c.IsUncertain
		},
		Effect: func(b *Bundle) {
			b.setConstraint("processingMode", 20, "conservative")
		},
	},
}

// setConstraint is a Bundle method so rule Effects can write without
// threading the priority table explicitly; internal bookkeeping lives on
// a parallel unexported map populated by Evaluate.
func (b *Bundle) setConstraint(name string, priority int, value any) {
	b.pendingWrites = append(b.pendingWrites, pendingWrite{name: name, priority: priority, value: value})
}

type pendingWrite struct {
	name     string
	priority int
	value    any
}

// Evaluate implements spec §4.4: sort rules by priority descending, walk
// in order, apply firing rules' effects, and produce the final Decision
// Bundle. The engine is pure — all state lives in its arguments.
func Evaluate(signals measurement.SignalVector, risks map[classifier.RiskKind]float64, c classifier.Classification) Bundle {
	ordered := make([]Rule, len(Rules))
	copy(ordered, Rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	b := Bundle{
		Constraints: make(map[string]Constraint),
		RiskWeights: copyRiskWeights(c.Primary),
		Context: Context{
			Classification: c,
			RawSignals:     signals,
			Risks:          risks,
		},
	}
	priorities := make(map[string]int)

	for _, rule := range ordered {
		if !appliesTo(rule, c.Primary) {
			continue
		}
		if !rule.Condition(signals, risks, c) {
			continue
		}
		b.AppliedRules = append(b.AppliedRules, rule.ID)
		b.pendingWrites = nil
		rule.Effect(&b)
		for _, w := range b.pendingWrites {
			commitWrite(&b, rule.ID, w, priorities)
		}
	}
	b.pendingWrites = nil

	return b
}

func commitWrite(b *Bundle, ruleID string, w pendingWrite, priorities map[string]int) {
	if incumbentPriority, ok := priorities[w.name]; ok && w.priority < incumbentPriority {
		b.AppliedRules = append(b.AppliedRules, fmt.Sprintf("%s:suppressed", ruleID))
		return
	}
	b.Constraints[w.name] = Constraint{Value: w.value, SourceRule: ruleID}
	priorities[w.name] = w.priority
}

func copyRiskWeights(tag classifier.StyleTag) map[classifier.RiskKind]float64 {
	src := classifier.Profiles[tag].RiskWeights
	dst := make(map[classifier.RiskKind]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WeightedConfidence implements spec §4.4's
// `confidence_weighted = 1 − Σ w_k·r_k / Σ w_k`, clamped to [0,1].
func WeightedConfidence(riskWeights map[classifier.RiskKind]float64, risks map[classifier.RiskKind]float64) float64 {
	var weightedSum, totalWeight float64
	for k, w := range riskWeights {
		weightedSum += w * risks[k]
		totalWeight += w
	}
	if totalWeight == 0 {
		return 1.0
	}
	conf := 1 - weightedSum/totalWeight
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// Package chainorder implements the chain-order validator of spec §4.10:
// a frozen safe-ordering model, forbidden-sequence table, out-of-order and
// non-repeatable-stage detection, and proposed-preset validation.
package chainorder

// Stage is a closed processing-stage identifier (spec §3 "Processing
// Chain Entry").
type Stage string

const (
	StageAnalysis          Stage = "ANALYSIS"
	StageRestoration       Stage = "RESTORATION"
	StageGainStaging       Stage = "GAIN_STAGING"
	StageEQ                Stage = "EQ"
	StageDynamics          Stage = "DYNAMICS"
	StageLimiting          Stage = "LIMITING"
	StageStereo            Stage = "STEREO"
	StageDither            Stage = "DITHER"
	StageFormatConversion  Stage = "FORMAT_CONVERSION"
)

// SafeOrder is the frozen canonical stage ordering (spec §4.10).
var SafeOrder = []Stage{
	StageAnalysis, StageRestoration, StageGainStaging, StageEQ, StageDynamics,
	StageLimiting, StageStereo, StageDither, StageFormatConversion,
}

func orderIndex(s Stage) int {
	for i, st := range SafeOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// NonRepeatable is the closed set of stages that may appear at most once
// in a chain (spec §4.10).
var NonRepeatable = map[Stage]bool{
	StageLimiting:         true,
	StageDither:           true,
	StageFormatConversion: true,
}

// Severity is the closed violation-severity set shared with the
// reports/compliance layers (spec §3 "ValidationViolation").
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ViolationType is the closed kind set for a chain-order violation.
type ViolationType string

const (
	ViolationForbiddenSequence ViolationType = "PROBLEMATIC_SEQUENCE"
	ViolationOutOfOrder        ViolationType = "OUT_OF_ORDER"
	ViolationNonRepeatableStageRepeated ViolationType = "REPEATED_NON_REPEATABLE_STAGE"
)

// Violation is one detected problem in a stage sequence.
type Violation struct {
	Type         ViolationType
	BeforeStage  Stage
	AfterStage   Stage
	Severity     Severity
	Recommendation string
}

type forbiddenPair struct {
	before, after Stage
	severity      Severity
}

// ForbiddenSequences is the frozen table of pairwise-forbidden orderings
// (spec §4.10 examples: DITHER→DYNAMICS = CRITICAL, LIMITING→DYNAMICS =
// ERROR, STEREO→LIMITING = WARNING).
var ForbiddenSequences = []forbiddenPair{
	{before: StageDither, after: StageDynamics, severity: SeverityCritical},
	{before: StageDither, after: StageEQ, severity: SeverityCritical},
	{before: StageFormatConversion, after: StageDynamics, severity: SeverityCritical},
	{before: StageFormatConversion, after: StageEQ, severity: SeverityCritical},
	{before: StageLimiting, after: StageDynamics, severity: SeverityError},
	{before: StageLimiting, after: StageEQ, severity: SeverityError},
	{before: StageStereo, after: StageLimiting, severity: SeverityWarning},
	{before: StageDynamics, after: StageGainStaging, severity: SeverityWarning},
}

func forbiddenSeverity(before, after Stage) (Severity, bool) {
	for _, f := range ForbiddenSequences {
		if f.before == before && f.after == after {
			return f.severity, true
		}
	}
	return "", false
}

// Status is the closed chain-validation status set (spec §4.10).
type Status string

const (
	StatusValid   Status = "VALID"
	StatusWarning Status = "WARNING"
	StatusInvalid Status = "INVALID"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

func statusFromViolations(violations []Violation) Status {
	worst := 0
	for _, v := range violations {
		if r := severityRank(v.Severity); r > worst {
			worst = r
		}
	}
	switch {
	case worst >= 2:
		return StatusInvalid
	case worst == 1:
		return StatusWarning
	default:
		return StatusValid
	}
}

// Result is the output of Validate.
type Result struct {
	Status     Status
	Violations []Violation
}

func recommendationFor(v Violation) string {
	switch v.Type {
	case ViolationForbiddenSequence:
		return "move " + string(v.AfterStage) + " before " + string(v.BeforeStage)
	case ViolationOutOfOrder:
		return "reorder " + string(v.AfterStage) + " to respect the safe stage order"
	case ViolationNonRepeatableStageRepeated:
		return "remove the repeated " + string(v.BeforeStage) + " pass"
	default:
		return ""
	}
}

// Validate implements spec §4.10's three scans: forbidden pairwise
// sequences, out-of-order stages (an index less than the running max
// seen), and repeats of non-repeatable stages. A sequence can be free of
// forbidden pairs and repeats yet still be WARNING, not VALID, if a stage
// appears out of SafeOrder; only a sequence clean across all three scans
// is VALID.
func Validate(stages []Stage) Result {
	var violations []Violation

	for i := 0; i < len(stages); i++ {
		for j := i + 1; j < len(stages); j++ {
			if sev, ok := forbiddenSeverity(stages[i], stages[j]); ok {
				v := Violation{
					Type:        ViolationForbiddenSequence,
					BeforeStage: stages[i],
					AfterStage:  stages[j],
					Severity:    sev,
				}
				v.Recommendation = recommendationFor(v)
				violations = append(violations, v)
			}
		}
	}

	runningMax := -1
	for i, s := range stages {
		idx := orderIndex(s)
		if idx < 0 {
			continue
		}
		if idx < runningMax {
			var prev Stage
			for k := i - 1; k >= 0; k-- {
				if orderIndex(stages[k]) == runningMax {
					prev = stages[k]
					break
				}
			}
			v := Violation{
				Type:        ViolationOutOfOrder,
				BeforeStage: prev,
				AfterStage:  s,
				Severity:    SeverityWarning,
			}
			v.Recommendation = recommendationFor(v)
			violations = append(violations, v)
		} else {
			runningMax = idx
		}
	}

	counts := make(map[Stage]int)
	for _, s := range stages {
		counts[s]++
	}
	for stage, count := range counts {
		if NonRepeatable[stage] && count > 1 {
			v := Violation{
				Type:        ViolationNonRepeatableStageRepeated,
				BeforeStage: stage,
				Severity:    SeverityError,
			}
			v.Recommendation = recommendationFor(v)
			violations = append(violations, v)
		}
	}

	return Result{Status: statusFromViolations(violations), Violations: violations}
}

// ProposedPresetResult is the output of ValidateProposedPreset.
type ProposedPresetResult struct {
	CanProceed    bool
	NewViolations []Violation
}

// ValidateProposedPreset implements `validateProposedPreset(existing,
// preset)`: validates existing+[preset] and returns only the violation
// subset that the appended stage introduces.
func ValidateProposedPreset(existing []Stage, preset Stage) ProposedPresetResult {
	before := Validate(existing)
	after := Validate(append(append([]Stage(nil), existing...), preset))

	beforeSet := make(map[Violation]bool, len(before.Violations))
	for _, v := range before.Violations {
		beforeSet[v] = true
	}

	var newViolations []Violation
	for _, v := range after.Violations {
		if !beforeSet[v] {
			newViolations = append(newViolations, v)
		}
	}

	canProceed := true
	for _, v := range newViolations {
		if v.Severity == SeverityCritical || v.Severity == SeverityError {
			canProceed = false
		}
	}

	return ProposedPresetResult{CanProceed: canProceed, NewViolations: newViolations}
}

// BuildOptimalOrder implements the idempotent reordering spec §4.10
// implies alongside validation: stable-sorts a stage set into SafeOrder,
// placing unrecognized stages (orderIndex == -1) at the end in their
// original relative order.
func BuildOptimalOrder(stages []Stage) []Stage {
	result := make([]Stage, len(stages))
	copy(result, stages)

	indexed := make([]int, len(result))
	for i, s := range result {
		idx := orderIndex(s)
		if idx < 0 {
			idx = len(SafeOrder) + i
		}
		indexed[i] = idx
	}

	for i := 1; i < len(result); i++ {
		j := i
		for j > 0 && indexed[j-1] > indexed[j] {
			indexed[j-1], indexed[j] = indexed[j], indexed[j-1]
			result[j-1], result[j] = result[j], result[j-1]
			j--
		}
	}
	return result
}

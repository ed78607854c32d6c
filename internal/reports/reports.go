// Package reports implements the Reports Repository of spec §4.15: the
// per-job report content contract, a forbidden-vocabulary validator and
// sanitizer, and asset-lineage surfacing by walking parent links.
package reports

import (
	"fmt"
	"strings"
)

// Type is the closed report-type taxonomy (spec §4.15).
type Type string

const (
	TypeAnalysis   Type = "ANALYSIS"
	TypeMixing     Type = "MIXING"
	TypeEditing    Type = "EDITING"
	TypeMastering  Type = "MASTERING"
	TypeConversion Type = "CONVERSION"
	TypeDelivery   Type = "DELIVERY"
)

// Report is the report content contract (spec §4.15). Confidence is
// formatted "NN%" at construction time, not computed here.
type Report struct {
	Type              Type
	Summary           string
	ChangesApplied    []string
	Rationale         string
	ImpactAssessment  string
	Confidence        string
	Limitations       string // optional, "" means absent
}

// FormatConfidence renders a [0,1] confidence score in the contract's
// "NN%" format.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%d%%", int(confidence*100+0.5))
}

// forbiddenVocabulary maps each manipulation-implying domain term to an
// approved substitute (spec §4.15). Matching is case-insensitive.
var forbiddenVocabulary = map[string]string{
	"fix":         "adjust",
	"fixed":       "adjusted",
	"repair":      "correct",
	"repaired":    "corrected",
	"fraud":       "inconsistency",
	"fake":        "synthetic",
	"deceive":     "obscure",
	"deceptive":   "misleading",
	"trick":       "technique",
	"manipulate":  "process",
	"manipulated": "processed",
	"manipulation": "processing",
	"cheat":       "shortcut",
	"forge":       "recreate",
	"forged":      "recreated",
	"counterfeit": "replicated",
}

// Violation is one forbidden-term match the content validator found.
type Violation struct {
	Term     string
	Field    string
	Position int
}

// ValidateContent rejects drafts that mention any forbidden-vocabulary
// term, returning every match found across the report's free-text fields.
func ValidateContent(r Report) []Violation {
	var violations []Violation
	fields := map[string]string{
		"summary":           r.Summary,
		"rationale":         r.Rationale,
		"impactAssessment":  r.ImpactAssessment,
		"limitations":       r.Limitations,
	}
	for field, text := range fields {
		lower := strings.ToLower(text)
		for term := range forbiddenVocabulary {
			if idx := strings.Index(lower, term); idx >= 0 {
				violations = append(violations, Violation{Term: term, Field: field, Position: idx})
			}
		}
	}
	for i, change := range r.ChangesApplied {
		lower := strings.ToLower(change)
		for term := range forbiddenVocabulary {
			if idx := strings.Index(lower, term); idx >= 0 {
				violations = append(violations, Violation{Term: term, Field: fmt.Sprintf("changesApplied[%d]", i), Position: idx})
			}
		}
	}
	return violations
}

// Sanitize replaces every forbidden-vocabulary term with its approved
// substitute from the fixed mapping, preserving surrounding case where the
// match was capitalized at the start of a word.
func Sanitize(r Report) Report {
	out := r
	out.Summary = sanitizeText(r.Summary)
	out.Rationale = sanitizeText(r.Rationale)
	out.ImpactAssessment = sanitizeText(r.ImpactAssessment)
	out.Limitations = sanitizeText(r.Limitations)
	if r.ChangesApplied != nil {
		out.ChangesApplied = make([]string, len(r.ChangesApplied))
		for i, c := range r.ChangesApplied {
			out.ChangesApplied[i] = sanitizeText(c)
		}
	}
	return out
}

func sanitizeText(text string) string {
	if text == "" {
		return text
	}
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool { return !isWordRune(r) })
		lower := strings.ToLower(trimmed)
		if repl, ok := forbiddenVocabulary[lower]; ok {
			prefix, suffix := splitPunctuation(w, trimmed)
			if trimmed != "" && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
				repl = strings.ToUpper(repl[:1]) + repl[1:]
			}
			words[i] = prefix + repl + suffix
		}
	}
	return strings.Join(words, " ")
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func splitPunctuation(original, trimmed string) (prefix, suffix string) {
	idx := strings.Index(original, trimmed)
	if idx < 0 || trimmed == "" {
		return "", ""
	}
	return original[:idx], original[idx+len(trimmed):]
}

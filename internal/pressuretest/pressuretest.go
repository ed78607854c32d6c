// Package pressuretest implements the Pressure Tester of spec §4.14: a
// batch harness that runs the orchestrator and classifier/decision pipeline
// across a sampled catalog and aggregates outcomes.
package pressuretest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/classifier"
	"github.com/meridian-audio/sentinel/internal/decision"
	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/orchestrator"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// DefaultExtensions is the extension allowlist used when ScanCatalog's
// extensions argument is empty.
var DefaultExtensions = []string{".wav", ".flac", ".aiff", ".mp3", ".m4a"}

// ConfidenceTier is the closed confidence-tier bucket (spec §4.14).
type ConfidenceTier string

const (
	TierHigh     ConfidenceTier = "HIGH"
	TierGood     ConfidenceTier = "GOOD"
	TierModerate ConfidenceTier = "MODERATE"
	TierLow      ConfidenceTier = "LOW"
	TierVeryLow  ConfidenceTier = "VERY_LOW"
)

func tierFor(confidence float64) ConfidenceTier {
	switch {
	case confidence >= 0.85:
		return TierHigh
	case confidence >= 0.70:
		return TierGood
	case confidence >= 0.55:
		return TierModerate
	case confidence >= 0.40:
		return TierLow
	default:
		return TierVeryLow
	}
}

// ScanCatalog lists every file under root whose extension is in the
// allowlist (case-sensitive match on the extension as written), in
// lexical order for determinism.
func ScanCatalog(root string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		allowed[e] = true
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if allowed[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SampleUniform deterministically samples n files without replacement from
// files, given an external rng. Passing a nil rng returns files unchanged
// (or truncated to n) so a run is reproducible given a fixed file list and
// a fixed seed (spec §4.14: "deterministic given a fixed file list").
func SampleUniform(files []string, n int, rng Rng) []string {
	if n <= 0 || n >= len(files) {
		return append([]string(nil), files...)
	}
	if rng == nil {
		return append([]string(nil), files[:n]...)
	}
	pool := append([]string(nil), files...)
	for i := len(pool) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// Rng is the minimal randomness seam SampleUniform needs, so pressure-test
// runs can be replayed byte-for-byte with a seeded implementation.
type Rng interface {
	Intn(n int) int
}

// FileOutcome is one file's recorded pressure-test result.
type FileOutcome struct {
	FilePath       string
	Style          classifier.StyleTag
	Confidence     float64
	Tier           ConfidenceTier
	AppliedRules   []string
	ProbeTimeMs    int64
	Err            error
}

// Aggregate is the batch-level summary spec §4.14 names.
type Aggregate struct {
	TotalFiles        int
	StyleDistribution map[classifier.StyleTag]int
	TierDistribution  map[ConfidenceTier]int
	RuleFrequency     map[string]int
	LowConfidenceFiles []string // tier LOW or VERY_LOW
	MeanConfidence    float64
	MeanProbeTimeMs   float64
	Errors            []string
}

// Report is the full pressure-test output.
type Report struct {
	Outcomes  []FileOutcome
	Aggregate Aggregate
}

// Run implements the C14 batch harness: for each file, runs the
// orchestrator (spec §4.13), extracts signals, classifies (spec §4.3),
// evaluates the decision engine (spec §4.4), and records the outcome.
func Run(ctx context.Context, adapter probe.Adapter, files []string, opts analyzers.Options) Report {
	outcomes := make([]FileOutcome, 0, len(files))

	for _, f := range files {
		start := time.Now()
		result, err := orchestrator.AnalyzeAudio(ctx, adapter, f, opts, nil, 0)
		probeMs := time.Since(start).Milliseconds()

		if err != nil {
			outcomes = append(outcomes, FileOutcome{FilePath: f, Err: err, ProbeTimeMs: probeMs})
			continue
		}

		signals := measurement.ExtractSignalVector(result.Bundle)
		classification := classifier.Classify(signals)
		risks := decision.ComputeRiskScores(result.Bundle)
		decisionBundle := decision.Evaluate(signals, risks, classification)

		outcomes = append(outcomes, FileOutcome{
			FilePath:     f,
			Style:        classification.Primary,
			Confidence:   classification.Confidence,
			Tier:         tierFor(classification.Confidence),
			AppliedRules: append([]string(nil), decisionBundle.AppliedRules...),
			ProbeTimeMs:  probeMs,
		})
	}

	return Report{Outcomes: outcomes, Aggregate: aggregate(outcomes)}
}

func aggregate(outcomes []FileOutcome) Aggregate {
	agg := Aggregate{
		TotalFiles:        len(outcomes),
		StyleDistribution: make(map[classifier.StyleTag]int),
		TierDistribution:  make(map[ConfidenceTier]int),
		RuleFrequency:     make(map[string]int),
	}

	var confidenceSum, probeSum float64
	var scored int

	for _, o := range outcomes {
		if o.Err != nil {
			agg.Errors = append(agg.Errors, o.FilePath+": "+o.Err.Error())
			continue
		}
		scored++
		agg.StyleDistribution[o.Style]++
		agg.TierDistribution[o.Tier]++
		for _, rule := range o.AppliedRules {
			agg.RuleFrequency[rule]++
		}
		if o.Tier == TierLow || o.Tier == TierVeryLow {
			agg.LowConfidenceFiles = append(agg.LowConfidenceFiles, o.FilePath)
		}
		confidenceSum += o.Confidence
		probeSum += float64(o.ProbeTimeMs)
	}

	if scored > 0 {
		agg.MeanConfidence = confidenceSum / float64(scored)
		agg.MeanProbeTimeMs = probeSum / float64(scored)
	}

	return agg
}

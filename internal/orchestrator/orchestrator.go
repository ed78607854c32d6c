// Package orchestrator implements the Orchestrator of spec §4.13: bounded
// parallel analyzer fan-out, Measurement Bundle composition, and closed-rule
// problem identification.
package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

// MaxFanOut bounds concurrent analyzer goroutines per analyzeAudio call, the
// orchestrator-level analogue of the probe adapter's own concurrency cap.
const MaxFanOut = 8

// FileInfo is the subset of probe format-info surfaced on Result.
type FileInfo struct {
	Format      string
	SampleRate  int
	Channels    int
	DurationSec float64
	BitDepth    int
	Codec       string
}

// Severity is the closed problem-severity ladder.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Problem is one emitted `identifyProblems` finding.
type Problem struct {
	Code           string
	Severity       Severity
	Category       string
	Description    string
	Recommendation string
}

// problemRule is one row of the closed, analyzer-status-keyed rule table.
type problemRule struct {
	analyzer       string
	status         string
	code           string
	severity       Severity
	category       string
	description    string
	recommendation string
}

// problemRules is the frozen table identifyProblems consults (spec §4.13).
var problemRules = []problemRule{
	{"loudness", "TOO_LOUD", "LOUDNESS_OVER_TARGET", SeverityWarning, "loudness", "Integrated loudness exceeds the target.", "Reduce gain before the target platform's normalization stage."},
	{"loudness", "TOO_QUIET", "LOUDNESS_UNDER_TARGET", SeverityInfo, "loudness", "Integrated loudness is under the target.", "A normalization pass can bring this up without limiting."},
	{"headroom", "CLIPPED", "CLIPPING_DETECTED", SeverityCritical, "headroom", "Sample or true-peak clipping detected.", "Apply a true-peak limiter before any further gain changes."},
	{"headroom", "CRITICAL", "HEADROOM_CRITICAL", SeverityError, "headroom", "Headroom is critically thin.", "Reduce gain or re-run through a limiter with more headroom."},
	{"crest_stress", "SEVERELY_LIMITED", "OVER_LIMITING", SeverityError, "dynamics", "Crest factor indicates severe limiting.", "Back off limiter drive or use a gentler dynamics preset."},
	{"crest_stress", "HEAVILY_COMPRESSED", "HEAVY_COMPRESSION", SeverityWarning, "dynamics", "Crest factor indicates heavy compression.", "Consider a lighter compression ratio if dynamics matter to this style."},
	{"transient", "VERY_BLUNTED", "TRANSIENTS_BLUNTED", SeverityWarning, "dynamics", "Transient sharpness is very low.", "Reduce attack time on upstream compressors/limiters."},
	{"dc_offset", "SEVERE", "DC_OFFSET_SEVERE", SeverityError, "signal-integrity", "Severe DC offset detected.", "Apply a DC-offset removal filter before further processing."},
	{"stereo_phase", "CRITICAL", "PHASE_CRITICAL", SeverityCritical, "stereo", "Stereo phase correlation is critically negative.", "Check for inverted channels or heavy stereo widening."},
	{"stereo_phase", "POOR", "PHASE_POOR", SeverityWarning, "stereo", "Stereo phase correlation is poor.", "Review wide stereo processing for mono-compatibility."},
	{"low_end_mono", "POOR", "LOW_END_NOT_MONO", SeverityWarning, "stereo", "Low end is not sufficiently mono-compatible.", "Apply low-end mono fold-down below ~120Hz."},
	{"low_end_mono", "CRITICAL", "LOW_END_PHASE_RISK", SeverityError, "stereo", "Low end phase cancellation risk on mono playback.", "Apply low-end mono fold-down before further stereo processing."},
	{"spectral_balance", "IMBALANCED", "SPECTRAL_IMBALANCE", SeverityWarning, "tonal-balance", "Spectral balance deviates from the reference curve.", "Apply corrective EQ in the flagged region."},
	{"gain_reduction", "HEAVY", "GAIN_REDUCTION_HEAVY", SeverityWarning, "dynamics", "A large fraction of material is under heavy gain reduction.", "Review limiter/compressor threshold and ratio settings."},
	{"codec_stress", "HIGH", "CODEC_STRESS_HIGH", SeverityWarning, "delivery", "Material is predicted to stress low-bitrate codecs.", "Target a higher minimum delivery bitrate or pre-master for codec robustness."},
	{"mono_fold_down", "CRITICAL", "FOLD_DOWN_CRITICAL", SeverityError, "stereo", "Mono fold-down produces a large level change.", "Apply low-end mono correction before this signal reaches mono playback systems."},
	{"car_system", "POOR", "CAR_SYSTEM_TRANSLATION_POOR", SeverityWarning, "translation", "Material translates poorly to car playback systems.", "Review low-end sustain and limiter pumping risk."},
}

// IdentifyProblems implements `identifyProblems(bundle)`: for every
// analyzer record in the bundle, emits the Problem the closed rule table
// names for that record's status. UNKNOWN statuses never contribute (spec
// §7).
func IdentifyProblems(b *measurement.Bundle) []Problem {
	var problems []Problem
	for _, rule := range problemRules {
		r, ok := b.Get(rule.analyzer)
		if !ok || r.StatusString() != rule.status {
			continue
		}
		problems = append(problems, Problem{
			Code:           rule.code,
			Severity:       rule.severity,
			Category:       rule.category,
			Description:    rule.description,
			Recommendation: rule.recommendation,
		})
	}
	return problems
}

// NormalizationInfo is attached to a Result when a normalization pass ran.
type NormalizationInfo struct {
	WasNormalized bool
	Changes       []string
	OriginalInfo  FileInfo
}

// Result is analyzeAudio's return value (spec §4.13).
type Result struct {
	Info           FileInfo
	Bundle         *measurement.Bundle
	Problems       []Problem
	AnalyzedAtUnix int64
	AnalysisTimeMs int64
	Normalization  *NormalizationInfo
}

// Normalizer materializes a sample-rate-normalized temporary copy of a file
// (spec §4.13's normalization wrapper). The orchestrator never performs the
// resample itself; it delegates to whatever ffmpeg-backed implementation the
// caller wires in.
type Normalizer interface {
	Normalize(ctx context.Context, filePath string, targetSampleRateHz int) (tmpPath string, changes []string, cleanup func(), err error)
}

// AnalyzeAudio implements `analyzeAudio(filePath, options)` (spec §4.13): a
// fixed, bounded-parallel analyzer fan-out over the probe adapter, bundle
// composition, and problem identification. If normalizer and
// targetSampleRateHz are both non-zero/non-nil and the file's sample rate
// differs from targetSampleRateHz, it first runs the normalization wrapper
// and analyzes the normalized temporary instead.
func AnalyzeAudio(ctx context.Context, adapter probe.Adapter, filePath string, opts analyzers.Options, normalizer Normalizer, targetSampleRateHz int) (Result, error) {
	start := time.Now()

	originalInfo, err := fileInfo(ctx, adapter, filePath)
	if err != nil {
		return Result{}, err
	}

	var normInfo *NormalizationInfo
	analyzeTarget := filePath

	if normalizer != nil && targetSampleRateHz > 0 && originalInfo.SampleRate != targetSampleRateHz {
		tmpPath, changes, cleanup, nerr := normalizer.Normalize(ctx, filePath, targetSampleRateHz)
		if nerr != nil {
			log.Warn().Err(nerr).Str("file", filePath).Msg("normalization pass failed, analyzing original")
		} else {
			defer cleanup()
			analyzeTarget = tmpPath
			normInfo = &NormalizationInfo{WasNormalized: true, Changes: changes, OriginalInfo: originalInfo}
		}
	}

	bundle, err := runAnalyzerFanOut(ctx, adapter, analyzeTarget, opts)
	if err != nil {
		return Result{}, err
	}

	info := originalInfo
	if normInfo != nil {
		if updated, ferr := fileInfo(ctx, adapter, analyzeTarget); ferr == nil {
			info = updated
		}
	}

	return Result{
		Info:           info,
		Bundle:         bundle,
		Problems:       IdentifyProblems(bundle),
		AnalyzedAtUnix: time.Now().Unix(),
		AnalysisTimeMs: time.Since(start).Milliseconds(),
		Normalization:  normInfo,
	}, nil
}

func fileInfo(ctx context.Context, adapter probe.Adapter, filePath string) (FileInfo, error) {
	reading, err := adapter.Probe(ctx, filePath, probe.Request{Kind: probe.KindFormatInfo})
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Format:      reading.Format,
		SampleRate:  reading.SampleRate,
		Channels:    reading.Channels,
		DurationSec: reading.DurationSec.Value,
		BitDepth:    reading.BitDepth,
		Codec:       reading.Codec,
	}, nil
}

// runAnalyzerFanOut runs every analyzer's Analyze call against a bounded
// pool of goroutines (golang.org/x/sync/errgroup + SetLimit), composing
// results into a single Bundle. The first analyzer-level error (distinct
// from a per-analyzer UNKNOWN degrade, which analyzers absorb themselves)
// cancels the remaining fan-out.
func runAnalyzerFanOut(ctx context.Context, adapter probe.Adapter, filePath string, opts analyzers.Options) (*measurement.Bundle, error) {
	all := analyzers.All()
	results := make([]measurement.Result, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxFanOut)

	for i, a := range all {
		i, a := i, a
		g.Go(func() error {
			r, err := a.Analyze(gctx, adapter, filePath, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle := measurement.NewBundle()
	for _, r := range results {
		if r != nil {
			bundle.Set(r)
		}
	}
	return bundle, nil
}

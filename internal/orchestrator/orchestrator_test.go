package orchestrator

import (
	"context"
	"testing"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/probe"
)

func clippedAdapter() *probe.FakeAdapter {
	a := probe.NewFakeAdapter()
	a.With(probe.KindFormatInfo, &probe.Reading{SampleRate: 44100, Channels: 2, DurationSec: probe.Some(180)})
	a.With(probe.KindOverallStats, &probe.Reading{PeakDb: probe.Some(0), RMSDb: probe.Some(-8), ClippedSamples: 40})
	return a
}

func TestAnalyzeAudioComposesBundleAndProblems(t *testing.T) {
	adapter := clippedAdapter()
	result, err := AnalyzeAudio(context.Background(), adapter, "track.wav", analyzers.DefaultOptions(), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Bundle == nil {
		t.Fatalf("expected a composed bundle")
	}
	if result.Info.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", result.Info.SampleRate)
	}
	if result.AnalysisTimeMs < 0 {
		t.Fatalf("expected non-negative analysis time")
	}
}

func TestIdentifyProblemsMatchesClosedRuleTable(t *testing.T) {
	b := measurement.NewBundle()
	b.Set(measurement.PeakRecord{Status: measurement.HeadroomClipped})
	b.Set(measurement.LoudnessRecord{Status: measurement.LoudnessUnknown})

	problems := IdentifyProblems(b)
	if len(problems) != 1 {
		t.Fatalf("expected exactly 1 problem (UNKNOWN never contributes), got %d: %+v", len(problems), problems)
	}
	if problems[0].Code != "CLIPPING_DETECTED" {
		t.Fatalf("expected CLIPPING_DETECTED, got %s", problems[0].Code)
	}
	if problems[0].Severity != SeverityCritical {
		t.Fatalf("expected CRITICAL severity, got %s", problems[0].Severity)
	}
}

func TestIdentifyProblemsEmptyBundleYieldsNoProblems(t *testing.T) {
	b := measurement.NewBundle()
	if problems := IdentifyProblems(b); len(problems) != 0 {
		t.Fatalf("expected no problems for an empty bundle, got %+v", problems)
	}
}

type fakeNormalizer struct {
	called bool
}

func (f *fakeNormalizer) Normalize(ctx context.Context, filePath string, targetSampleRateHz int) (string, []string, func(), error) {
	f.called = true
	return filePath, []string{"resampled 44100 -> 48000"}, func() {}, nil
}

func TestAnalyzeAudioRunsNormalizationWrapperOnSampleRateMismatch(t *testing.T) {
	adapter := clippedAdapter()
	norm := &fakeNormalizer{}
	result, err := AnalyzeAudio(context.Background(), adapter, "track.wav", analyzers.DefaultOptions(), norm, 48000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !norm.called {
		t.Fatalf("expected normalizer to be invoked on sample-rate mismatch")
	}
	if result.Normalization == nil || !result.Normalization.WasNormalized {
		t.Fatalf("expected normalization info to be attached")
	}
	if result.Normalization.OriginalInfo.SampleRate != 44100 {
		t.Fatalf("expected original info to carry the pre-normalization sample rate")
	}
}

func TestAnalyzeAudioSkipsNormalizationWhenAlreadyAtTarget(t *testing.T) {
	adapter := clippedAdapter()
	norm := &fakeNormalizer{}
	result, err := AnalyzeAudio(context.Background(), adapter, "track.wav", analyzers.DefaultOptions(), norm, 44100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm.called {
		t.Fatalf("expected normalizer to be skipped when already at target rate")
	}
	if result.Normalization != nil {
		t.Fatalf("expected no normalization info when no pass ran")
	}
}

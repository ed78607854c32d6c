package pressuretest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/probe"
)

func TestScanCatalogFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.txt", "c.flac", "d.WAV"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	files, err := ScanCatalog(dir, []string{".wav", ".flac"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 matching files (case-sensitive ext match), got %v", files)
	}
}

type fixedRng struct{ seq []int }

func (f *fixedRng) Intn(n int) int {
	v := f.seq[0] % n
	f.seq = f.seq[1:]
	return v
}

func TestSampleUniformIsDeterministicGivenFixedRng(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e"}
	r1 := SampleUniform(files, 3, &fixedRng{seq: []int{4, 1, 2, 3, 4}})
	r2 := SampleUniform(files, 3, &fixedRng{seq: []int{4, 1, 2, 3, 4}})
	if len(r1) != 3 || len(r2) != 3 {
		t.Fatalf("expected 3 sampled files, got %v / %v", r1, r2)
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("expected identical sample given identical rng sequence, got %v vs %v", r1, r2)
		}
	}
}

func TestSampleUniformReturnsAllWhenNExceedsLength(t *testing.T) {
	files := []string{"a", "b"}
	got := SampleUniform(files, 10, &fixedRng{seq: []int{0, 0, 0}})
	if len(got) != 2 {
		t.Fatalf("expected all files returned, got %v", got)
	}
}

func TestRunAggregatesOutcomesAndTiers(t *testing.T) {
	adapter := probe.NewFakeAdapter()
	adapter.With(probe.KindFormatInfo, &probe.Reading{SampleRate: 44100, Channels: 2, DurationSec: probe.Some(120)})
	adapter.With(probe.KindLoudnessR128, &probe.Reading{IntegratedLUFS: probe.Some(-14)})

	report := Run(context.Background(), adapter, []string{"a.wav", "b.wav"}, analyzers.DefaultOptions())

	if report.Aggregate.TotalFiles != 2 {
		t.Fatalf("expected 2 total files, got %d", report.Aggregate.TotalFiles)
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(report.Outcomes))
	}
	sum := 0
	for _, c := range report.Aggregate.TierDistribution {
		sum += c
	}
	if sum != 2 {
		t.Fatalf("expected tier distribution to cover all scored files, got %+v", report.Aggregate.TierDistribution)
	}
}

func TestRunRecordsProbeErrorsSeparately(t *testing.T) {
	adapter := probe.NewFakeAdapter()
	adapter.WithError(probe.KindFormatInfo, os.ErrNotExist)

	report := Run(context.Background(), adapter, []string{"missing.wav"}, analyzers.DefaultOptions())
	if len(report.Aggregate.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %v", report.Aggregate.Errors)
	}
	if report.Aggregate.TotalFiles != 1 {
		t.Fatalf("expected total files to still count the attempted file")
	}
}

func TestTierForBoundaries(t *testing.T) {
	cases := []struct {
		confidence float64
		want       ConfidenceTier
	}{
		{0.9, TierHigh},
		{0.85, TierHigh},
		{0.7, TierGood},
		{0.55, TierModerate},
		{0.4, TierLow},
		{0.1, TierVeryLow},
	}
	for _, c := range cases {
		if got := tierFor(c.confidence); got != c.want {
			t.Fatalf("tierFor(%f) = %s, want %s", c.confidence, got, c.want)
		}
	}
}

package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/meridian-audio/sentinel/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetAsset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := &models.Asset{Path: "/catalog/track01.wav", Filename: "track01.wav", Extension: ".wav", Size: 1024}
	if err := db.CreateAsset(ctx, a); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected generated asset ID")
	}

	got, err := db.GetAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got.Path != a.Path {
		t.Errorf("Path = %q, want %q", got.Path, a.Path)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusPending)
	}
}

func TestListAssetsFiltersByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a1 := &models.Asset{Path: "/a.wav", Filename: "a.wav", Extension: ".wav"}
	a2 := &models.Asset{Path: "/b.wav", Filename: "b.wav", Extension: ".wav", Status: models.StatusSuccess}
	if err := db.CreateAsset(ctx, a1); err != nil {
		t.Fatalf("CreateAsset a1: %v", err)
	}
	if err := db.CreateAsset(ctx, a2); err != nil {
		t.Fatalf("CreateAsset a2: %v", err)
	}

	results, total, err := db.ListAssets(ctx, models.StatusSuccess, 10, 0)
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("expected 1 success asset, got total=%d len=%d", total, len(results))
	}
	if results[0].ID != a2.ID {
		t.Errorf("expected asset %s, got %s", a2.ID, results[0].ID)
	}
}

func TestAssetVersionLineageAndOperations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	asset := &models.Asset{Path: "/c.wav", Filename: "c.wav", Extension: ".wav"}
	if err := db.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	v1 := &models.AssetVersion{AssetID: asset.ID, IntegratedLoudness: -18, TruePeak: -1.2, SampleRateHz: 48000}
	if err := db.CreateAssetVersion(ctx, v1); err != nil {
		t.Fatalf("CreateAssetVersion v1: %v", err)
	}

	v2 := &models.AssetVersion{
		AssetID:            asset.ID,
		ParentVersionID:    sql.NullString{String: v1.ID, Valid: true},
		IntegratedLoudness: -23,
		TruePeak:           -1.0,
		SampleRateHz:       48000,
		Operations:         []string{"gain-adjust", "true-peak-limit"},
	}
	if err := db.CreateAssetVersion(ctx, v2); err != nil {
		t.Fatalf("CreateAssetVersion v2: %v", err)
	}

	versions, err := db.ListAssetVersions(ctx, asset.ID)
	if err != nil {
		t.Fatalf("ListAssetVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if !versions[1].ParentVersionID.Valid || versions[1].ParentVersionID.String != v1.ID {
		t.Errorf("expected v2 parent to be v1, got %+v", versions[1].ParentVersionID)
	}
	if len(versions[1].Operations) != 2 {
		t.Errorf("expected 2 parsed operations, got %d", len(versions[1].Operations))
	}
}

func TestChainEntrySequenceOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	asset := &models.Asset{Path: "/d.wav", Filename: "d.wav", Extension: ".wav"}
	if err := db.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	for i, stage := range []string{"eq", "compression", "limiting"} {
		entry := &models.ProcessingChainEntry{AssetID: asset.ID, Stage: stage, Preset: "default", Sequence: i}
		if err := db.AppendChainEntry(ctx, entry); err != nil {
			t.Fatalf("AppendChainEntry %s: %v", stage, err)
		}
	}

	entries, err := db.ListChainEntries(ctx, asset.ID)
	if err != nil {
		t.Fatalf("ListChainEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Stage != "eq" || entries[2].Stage != "limiting" {
		t.Errorf("unexpected chain order: %+v", entries)
	}
}

func TestJobQueueClaimsOldestHighestPriority(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	low := &models.Job{Type: "analysis", TargetType: "asset", TargetID: "a1", Priority: 1, MaxAttempts: 3}
	high := &models.Job{Type: "analysis", TargetType: "asset", TargetID: "a2", Priority: 5, MaxAttempts: 3}
	if err := db.CreateJob(ctx, low); err != nil {
		t.Fatalf("CreateJob low: %v", err)
	}
	if err := db.CreateJob(ctx, high); err != nil {
		t.Fatalf("CreateJob high: %v", err)
	}

	claimed, err := db.GetNextJob(ctx, "analysis")
	if err != nil {
		t.Fatalf("GetNextJob: %v", err)
	}
	if claimed.ID != high.ID {
		t.Errorf("expected to claim higher priority job %s, got %s", high.ID, claimed.ID)
	}
	if claimed.Status != models.StatusRunning {
		t.Errorf("expected claimed job status running, got %s", claimed.Status)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	all, err := db.GetAllSettings(ctx)
	if err != nil {
		t.Fatalf("GetAllSettings: %v", err)
	}
	if all["loudness_target_lufs"] != "-23" {
		t.Errorf("expected seeded loudness_target_lufs=-23, got %q", all["loudness_target_lufs"])
	}

	if err := db.SetSetting(ctx, &models.Setting{Key: "loudness_target_lufs", Value: "-16", Type: "float", Category: "decision"}); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	got, err := db.GetSetting(ctx, "loudness_target_lufs")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got.Value != "-16" {
		t.Errorf("Value = %q, want -16", got.Value)
	}
}

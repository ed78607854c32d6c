package reports

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := Report{
		Type:             TypeMastering,
		Summary:          "Adjusted integrated loudness for the streaming target.",
		ChangesApplied:   []string{"Applied -3dB gain"},
		Rationale:        "Source exceeded target by 3 LU.",
		ImpactAssessment: "Perceived loudness reduced.",
		Confidence:       "91%",
	}

	id, err := store.Save(ctx, "asset-1", "job-1", "v2", "v1", r)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, r.Summary, got.Summary)
	require.Equal(t, r.ChangesApplied, got.ChangesApplied)
}

func TestStoreSaveRejectsForbiddenVocabulary(t *testing.T) {
	store := newTestStore(t)
	r := Report{
		Summary:          "We fixed the clipping.",
		Rationale:        "n/a",
		ImpactAssessment: "n/a",
		Confidence:       "90%",
	}
	_, err := store.Save(context.Background(), "asset-1", "job-1", "v2", "v1", r)
	require.ErrorIs(t, err, ErrForbiddenVocabulary)
}

func TestGetAssetLineageWalksParentLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := Report{
		Summary:          "Adjusted levels.",
		Rationale:        "n/a",
		ImpactAssessment: "n/a",
		Confidence:       "90%",
	}
	_, err := store.Save(ctx, "asset-1", "job-1", "v1", "", base)
	require.NoError(t, err)
	_, err = store.Save(ctx, "asset-1", "job-2", "v2", "v1", base)
	require.NoError(t, err)
	_, err = store.Save(ctx, "asset-1", "job-3", "v3", "v2", base)
	require.NoError(t, err)

	nodes, err := store.GetAssetLineage(ctx, "asset-1")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, "v1", nodes[0].VersionID)
	require.Equal(t, "", nodes[0].ParentID)
	require.Equal(t, "v2", nodes[1].VersionID)
	require.Equal(t, "v1", nodes[1].ParentID)
	require.Len(t, nodes[1].Reports, 1)
}

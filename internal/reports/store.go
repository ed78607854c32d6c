package reports

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists job reports over the sqlx handle shared with the rest of
// the asset database, the same way the teacher's internal/database wraps
// *sqlx.DB for its own tables.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	migration, err := migrationsFS.ReadFile("migrations/001_reports.sql")
	if err != nil {
		return fmt.Errorf("read reports migration: %w", err)
	}
	if _, err := s.db.Exec(string(migration)); err != nil {
		return fmt.Errorf("run reports migration: %w", err)
	}
	return nil
}

type row struct {
	ID                 string         `db:"id"`
	AssetID            string         `db:"asset_id"`
	JobID              string         `db:"job_id"`
	VersionID          string         `db:"version_id"`
	ParentVersionID    sql.NullString `db:"parent_version_id"`
	Type               string         `db:"type"`
	Summary            string         `db:"summary"`
	ChangesAppliedJSON string         `db:"changes_applied_json"`
	Rationale          string         `db:"rationale"`
	ImpactAssessment   string         `db:"impact_assessment"`
	Confidence         string         `db:"confidence"`
	Limitations        sql.NullString `db:"limitations"`
	CreatedAt          time.Time      `db:"created_at"`
}

// ErrForbiddenVocabulary is returned by Save when the draft still contains
// a forbidden term after the caller was expected to sanitize it first.
var ErrForbiddenVocabulary = errors.New("report content contains forbidden vocabulary")

// Save persists a report filed against the version a job produced. Reports
// must already be sanitized (spec §4.15): Save re-validates and refuses to
// persist a draft that still trips the forbidden-vocabulary check.
func (s *Store) Save(ctx context.Context, assetID, jobID, versionID, parentVersionID string, r Report) (string, error) {
	if violations := ValidateContent(r); len(violations) > 0 {
		return "", fmt.Errorf("%w: %v", ErrForbiddenVocabulary, violations)
	}

	changesJSON, err := json.Marshal(r.ChangesApplied)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_reports (id, asset_id, job_id, version_id, parent_version_id, type, summary, changes_applied_json, rationale, impact_assessment, confidence, limitations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, assetID, jobID, versionID, nullableString(parentVersionID), string(r.Type), r.Summary, string(changesJSON), r.Rationale, r.ImpactAssessment, r.Confidence, nullableString(r.Limitations), time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func (s *Store) Get(ctx context.Context, reportID string) (Report, error) {
	var rec row
	if err := s.db.GetContext(ctx, &rec, "SELECT * FROM job_reports WHERE id = ?", reportID); err != nil {
		return Report{}, err
	}
	return toReport(rec)
}

func (s *Store) ListByAsset(ctx context.Context, assetID string) ([]Report, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM job_reports WHERE asset_id = ? ORDER BY created_at", assetID); err != nil {
		return nil, err
	}
	return toReports(rows)
}

func toReport(rec row) (Report, error) {
	var changes []string
	if err := json.Unmarshal([]byte(rec.ChangesAppliedJSON), &changes); err != nil {
		return Report{}, err
	}
	return Report{
		Type:             Type(rec.Type),
		Summary:          rec.Summary,
		ChangesApplied:   changes,
		Rationale:        rec.Rationale,
		ImpactAssessment: rec.ImpactAssessment,
		Confidence:       rec.Confidence,
		Limitations:      rec.Limitations.String,
	}, nil
}

func toReports(rows []row) ([]Report, error) {
	out := make([]Report, 0, len(rows))
	for _, rec := range rows {
		r, err := toReport(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// AssetVersionNode is one node of GetAssetLineage's output: a version, its
// parent pointer, and the reports filed against the job that produced it.
type AssetVersionNode struct {
	VersionID string
	ParentID  string // "" if this version is the asset's root
	Reports   []Report
}

// GetAssetLineage implements `getAssetLineage(assetId)` (spec §4.15):
// walks every version filed against an asset, in chronological order, and
// attaches each node's job report references.
func (s *Store) GetAssetLineage(ctx context.Context, assetID string) ([]AssetVersionNode, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM job_reports WHERE asset_id = ? ORDER BY created_at
	`, assetID)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byVersion := make(map[string]*AssetVersionNode)
	for _, rec := range rows {
		node, ok := byVersion[rec.VersionID]
		if !ok {
			node = &AssetVersionNode{VersionID: rec.VersionID, ParentID: rec.ParentVersionID.String}
			byVersion[rec.VersionID] = node
			order = append(order, rec.VersionID)
		}
		report, err := toReport(rec)
		if err != nil {
			return nil, err
		}
		node.Reports = append(node.Reports, report)
	}

	out := make([]AssetVersionNode, 0, len(order))
	for _, vid := range order {
		out = append(out, *byVersion[vid])
	}
	return out, nil
}

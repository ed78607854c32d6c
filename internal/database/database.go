package database

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meridian-audio/sentinel/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sqlx.DB
}

func New(dsn string) (*DB, error) {
	db, err := sqlx.Connect("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	migration, err := migrationsFS.ReadFile("migrations/001_initial.sql")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	if _, err := db.Exec(string(migration)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return db.seedDefaults()
}

func (db *DB) seedDefaults() error {
	settings := []models.Setting{
		{Key: "loudness_target_lufs", Value: "-23", Type: "float", Category: "decision"},
		{Key: "true_peak_ceiling_dbtp", Value: "-1", Type: "float", Category: "decision"},
		{Key: "probe_concurrency", Value: "4", Type: "int", Category: "probe"},
		{Key: "default_compliance_platforms", Value: "spotify,ebu-r128", Type: "string", Category: "compliance"},
		{Key: "worker_count", Value: "4", Type: "int", Category: "jobs"},
		{Key: "notifications_enabled", Value: "true", Type: "bool", Category: "notifications"},
	}

	for _, s := range settings {
		_, err := db.Exec(`
			INSERT OR IGNORE INTO settings (key, value, type, category, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, s.Key, s.Value, s.Type, s.Category, time.Now())
		if err != nil {
			return err
		}
	}

	return nil
}

// Asset operations

func (db *DB) CreateAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.Status == "" {
		a.Status = models.StatusPending
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO assets (id, path, filename, extension, size, mtime, quick_hash, status, error_msg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Path, a.Filename, a.Extension, a.Size, a.Mtime, a.QuickHash, a.Status, a.ErrorMsg, a.CreatedAt, a.UpdatedAt)
	return err
}

func (db *DB) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	if err := db.GetContext(ctx, &a, "SELECT * FROM assets WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) GetAssetByPath(ctx context.Context, path string) (*models.Asset, error) {
	var a models.Asset
	if err := db.GetContext(ctx, &a, "SELECT * FROM assets WHERE path = ?", path); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) UpdateAssetStatus(ctx context.Context, id, status, errMsg string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE assets SET status = ?, error_msg = ?, updated_at = ? WHERE id = ?
	`, status, nullIfEmpty(errMsg), time.Now(), id)
	return err
}

func (db *DB) ListAssets(ctx context.Context, status string, limit, offset int) ([]models.Asset, int, error) {
	var assets []models.Asset
	query := "SELECT * FROM assets"
	countQuery := "SELECT COUNT(*) FROM assets"
	args := []interface{}{}

	if status != "" {
		query += " WHERE status = ?"
		countQuery += " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// AssetVersion operations — the persisted lineage chain a given asset moves
// through as the decision engine and pressure tester produce new snapshots.

func (db *DB) CreateAssetVersion(ctx context.Context, v *models.AssetVersion) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now()
	if v.Operations != nil {
		b, err := json.Marshal(v.Operations)
		if err != nil {
			return err
		}
		v.OperationsJSON = string(b)
	}
	if v.OperationsJSON == "" {
		v.OperationsJSON = "[]"
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO asset_versions (
			id, asset_id, parent_version_id, integrated_loudness, true_peak,
			dynamic_range, width, spectral_balance, sample_rate_hz, operations_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.AssetID, v.ParentVersionID, v.IntegratedLoudness, v.TruePeak,
		v.DynamicRange, v.Width, v.SpectralBalance, v.SampleRateHz, v.OperationsJSON, v.CreatedAt)
	return err
}

func (db *DB) GetAssetVersion(ctx context.Context, id string) (*models.AssetVersion, error) {
	var v models.AssetVersion
	if err := db.GetContext(ctx, &v, "SELECT * FROM asset_versions WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err := v.ParseOperations(); err != nil {
		return nil, fmt.Errorf("failed to parse operations for version %s: %w", id, err)
	}
	return &v, nil
}

func (db *DB) ListAssetVersions(ctx context.Context, assetID string) ([]models.AssetVersion, error) {
	var versions []models.AssetVersion
	err := db.SelectContext(ctx, &versions, `
		SELECT * FROM asset_versions WHERE asset_id = ? ORDER BY created_at ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		if err := versions[i].ParseOperations(); err != nil {
			return nil, fmt.Errorf("failed to parse operations for version %s: %w", versions[i].ID, err)
		}
	}
	return versions, nil
}

// ProcessingChainEntry operations — the applied-stage history consumed by
// the chain-order validator and the cumulative risk scorer.

func (db *DB) AppendChainEntry(ctx context.Context, e *models.ProcessingChainEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.AppliedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO processing_chain_entries (id, asset_id, stage, preset, sequence, applied_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.AssetID, e.Stage, e.Preset, e.Sequence, e.AppliedAt)
	return err
}

func (db *DB) ListChainEntries(ctx context.Context, assetID string) ([]models.ProcessingChainEntry, error) {
	var entries []models.ProcessingChainEntry
	err := db.SelectContext(ctx, &entries, `
		SELECT * FROM processing_chain_entries WHERE asset_id = ? ORDER BY sequence ASC
	`, assetID)
	return entries, err
}

// Job operations — unchanged from the teacher's generic job queue; dispatch
// stays keyed purely on Type so this needs no domain-specific rework.

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now()
	job.Status = models.StatusQueued

	_, err := db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, target_type, target_id, status, priority, attempts, max_attempts, payload_json, scheduled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Type, job.TargetType, job.TargetID, job.Status, job.Priority, job.Attempts, job.MaxAttempts, job.PayloadJSON, job.ScheduledAt, job.CreatedAt)

	return err
}

func (db *DB) GetNextJob(ctx context.Context, jobType string) (*models.Job, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var job models.Job
	err = tx.GetContext(ctx, &job, `
		SELECT * FROM jobs
		WHERE type = ? AND status = ? AND scheduled_at <= ?
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT 1
	`, jobType, models.StatusQueued, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`, models.StatusRunning, time.Now(), job.ID, models.StatusQueued)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = models.StatusRunning
	return &job, nil
}

func (db *DB) UpdateJob(ctx context.Context, job *models.Job) error {
	_, err := db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, attempts = ?, last_error = ?, started_at = ?, finished_at = ?, scheduled_at = ?
		WHERE id = ?
	`, job.Status, job.Attempts, job.LastError, job.StartedAt, job.FinishedAt, job.ScheduledAt, job.ID)
	return err
}

func (db *DB) ListJobs(ctx context.Context, status string, limit int) ([]models.Job, error) {
	var jobs []models.Job
	query := "SELECT * FROM jobs"
	args := []interface{}{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	err := db.SelectContext(ctx, &jobs, query, args...)
	return jobs, err
}

// Settings operations — unchanged from the teacher.

func (db *DB) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := db.GetContext(ctx, &setting, "SELECT * FROM settings WHERE key = ?", key)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (db *DB) SetSetting(ctx context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, type, category, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, setting.Key, setting.Value, setting.Type, setting.Category, setting.UpdatedAt, setting.Value, setting.UpdatedAt)
	return err
}

func (db *DB) ListSettings(ctx context.Context, category string) ([]models.Setting, error) {
	var settings []models.Setting
	query := "SELECT * FROM settings"
	args := []interface{}{}

	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}

	query += " ORDER BY category, key"
	err := db.SelectContext(ctx, &settings, query, args...)
	return settings, err
}

func (db *DB) GetAllSettings(ctx context.Context) (map[string]string, error) {
	settings, err := db.ListSettings(ctx, "")
	if err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, s := range settings {
		result[s.Key] = s.Value
	}
	return result, nil
}

// DashboardStats summarizes catalog-wide state for an operator console: how
// many assets are in each status and how deep the job queue currently runs.
type DashboardStats struct {
	TotalAssets      int            `json:"totalAssets"`
	AssetsByStatus   map[string]int `json:"assetsByStatus"`
	QueuedJobs       int            `json:"queuedJobs"`
	RunningJobs      int            `json:"runningJobs"`
	FailedJobsLast24h int           `json:"failedJobsLast24h"`
}

func (db *DB) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{AssetsByStatus: make(map[string]int)}

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM assets"); err != nil {
		return nil, err
	}
	stats.TotalAssets = total

	type statusCount struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	var counts []statusCount
	if err := db.SelectContext(ctx, &counts, "SELECT status, COUNT(*) as count FROM assets GROUP BY status"); err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.AssetsByStatus[c.Status] = c.Count
	}

	if err := db.GetContext(ctx, &stats.QueuedJobs, "SELECT COUNT(*) FROM jobs WHERE status = ?", models.StatusQueued); err != nil {
		return nil, err
	}
	if err := db.GetContext(ctx, &stats.RunningJobs, "SELECT COUNT(*) FROM jobs WHERE status = ?", models.StatusRunning); err != nil {
		return nil, err
	}
	if err := db.GetContext(ctx, &stats.FailedJobsLast24h, `
		SELECT COUNT(*) FROM jobs WHERE status = ? AND finished_at >= ?
	`, models.StatusFailed, time.Now().Add(-24*time.Hour)); err != nil {
		return nil, err
	}

	return stats, nil
}

// Package models defines the persisted domain types behind the database
// and jobs packages: assets, their processing-chain history, lineage
// versions, and the generic background job queue.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Asset represents one audio file under management — the root entity every
// measurement, classification, decision, and lineage record hangs off.
type Asset struct {
	ID          string         `db:"id" json:"id"`
	Path        string         `db:"path" json:"path"`
	Filename    string         `db:"filename" json:"filename"`
	Extension   string         `db:"extension" json:"extension"`
	Size        int64          `db:"size" json:"size"`
	Mtime       time.Time      `db:"mtime" json:"mtime"`
	QuickHash   sql.NullString `db:"quick_hash" json:"quickHash,omitempty"`
	Status      string         `db:"status" json:"status"`
	ErrorMsg    sql.NullString `db:"error_msg" json:"errorMsg,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// AssetVersion is one persisted snapshot of an asset's measurements and
// lineage position — the storage-layer counterpart of internal/lineage's
// in-memory Version.
type AssetVersion struct {
	ID             string         `db:"id" json:"id"`
	AssetID        string         `db:"asset_id" json:"assetId"`
	ParentVersionID sql.NullString `db:"parent_version_id" json:"parentVersionId,omitempty"`

	IntegratedLoudness float64 `db:"integrated_loudness" json:"integratedLoudness"`
	TruePeak           float64 `db:"true_peak" json:"truePeak"`
	DynamicRange       float64 `db:"dynamic_range" json:"dynamicRange"`
	Width              float64 `db:"width" json:"width"`
	SpectralBalance    float64 `db:"spectral_balance" json:"spectralBalance"`
	SampleRateHz       int     `db:"sample_rate_hz" json:"sampleRateHz"`

	OperationsJSON string    `db:"operations_json" json:"-"`
	Operations     []string  `db:"-" json:"operations,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (v *AssetVersion) ParseOperations() error {
	if v.OperationsJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(v.OperationsJSON), &v.Operations)
}

// ProcessingChainEntry is one applied preset/stage in an asset's processing
// history, the persisted form the chain-order validator (internal/chainorder)
// and cumulative risk scorer (internal/risk) consume as input history.
type ProcessingChainEntry struct {
	ID        string    `db:"id" json:"id"`
	AssetID   string    `db:"asset_id" json:"assetId"`
	Stage     string    `db:"stage" json:"stage"`
	Preset    string    `db:"preset" json:"preset"`
	Sequence  int       `db:"sequence" json:"sequence"`
	AppliedAt time.Time `db:"applied_at" json:"appliedAt"`
}

// Job represents a generic background job — analysis, a pressure-test
// batch run, or a report-generation task. Domain-agnostic by design: the
// worker pool (internal/jobs) dispatches purely on Type.
type Job struct {
	ID          string         `db:"id" json:"id"`
	Type        string         `db:"type" json:"type"`
	TargetType  string         `db:"target_type" json:"targetType"`
	TargetID    string         `db:"target_id" json:"targetId"`
	Status      string         `db:"status" json:"status"`
	Priority    int            `db:"priority" json:"priority"`
	Attempts    int            `db:"attempts" json:"attempts"`
	MaxAttempts int            `db:"max_attempts" json:"maxAttempts"`
	LastError   sql.NullString `db:"last_error" json:"lastError,omitempty"`
	PayloadJSON sql.NullString `db:"payload_json" json:"-"`
	ScheduledAt time.Time      `db:"scheduled_at" json:"scheduledAt"`
	StartedAt   sql.NullTime   `db:"started_at" json:"startedAt,omitempty"`
	FinishedAt  sql.NullTime   `db:"finished_at" json:"finishedAt,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`

	Payload map[string]interface{} `db:"-" json:"payload,omitempty"`
}

// Setting represents a user/app setting (unchanged from the teacher's
// key/value settings store — used identically here for pipeline tunables
// like default loudness target and max probe concurrency).
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	Type      string    `db:"type" json:"type"`
	Category  string    `db:"category" json:"category"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Status constants shared by Asset, AssetVersion, and Job records.
const (
	StatusPending   = "pending"
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusRetry     = "retry"
)

package jobs

import (
	"sync"
	"time"
)

// Stage names the pipeline phase an AnalysisLogEntry was emitted from.
type Stage string

const (
	StageProbe        Stage = "probe"
	StageOrchestrator Stage = "orchestrator"
	StageClassifier   Stage = "classifier"
	StageDecision     Stage = "decision"
	StageReport       Stage = "report"
)

// AnalysisLogEntry is one structured event emitted by a single pipeline
// stage while a job runs. Signals carries the named measurement or decision
// values the stage had in hand when it logged, if any.
type AnalysisLogEntry struct {
	Timestamp time.Time          `json:"timestamp"`
	Level     string             `json:"level"` // info, warn, error, debug
	Stage     Stage              `json:"stage,omitempty"`
	Message   string             `json:"message"`
	Signals   map[string]float64 `json:"signals,omitempty"`
	Details   string             `json:"details,omitempty"`
}

// AnalysisLog holds every stage's entries for one analyze job.
type AnalysisLog struct {
	JobID     string             `json:"jobId"`
	AssetID   string             `json:"assetId,omitempty"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"startedAt"`
	EndedAt   *time.Time         `json:"endedAt,omitempty"`
	Entries   []AnalysisLogEntry `json:"entries"`
}

// Logger keeps a bounded, in-memory trail of every stage an analyze job
// passed through, for surfacing on job-status endpoints without round
// tripping through the report store.
type Logger struct {
	mu   sync.RWMutex
	logs map[string]*AnalysisLog
	// Keep only last N jobs to avoid memory bloat
	maxJobs int
	order   []string // Track order for cleanup
}

// NewLogger creates a new job logger
func NewLogger(maxJobs int) *Logger {
	if maxJobs <= 0 {
		maxJobs = 100
	}
	return &Logger{
		logs:    make(map[string]*AnalysisLog),
		maxJobs: maxJobs,
		order:   make([]string, 0),
	}
}

// StartJob begins logging for a new analyze job against the given asset.
func (l *Logger) StartJob(jobID, assetID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Clean up old jobs if needed
	for len(l.order) >= l.maxJobs {
		oldID := l.order[0]
		l.order = l.order[1:]
		delete(l.logs, oldID)
	}

	l.logs[jobID] = &AnalysisLog{
		JobID:     jobID,
		AssetID:   assetID,
		Status:    "running",
		StartedAt: time.Now(),
		Entries:   make([]AnalysisLogEntry, 0),
	}
	l.order = append(l.order, jobID)

	l.addEntryLocked(jobID, "info", StageProbe, "analysis started", nil, "")
}

// EndJob marks a job as completed or failed
func (l *Logger) EndJob(jobID string, success bool, errorMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if job, ok := l.logs[jobID]; ok {
		now := time.Now()
		job.EndedAt = &now
		if success {
			job.Status = "completed"
			l.addEntryLocked(jobID, "info", StageReport, "analysis completed successfully", nil, "")
		} else {
			job.Status = "failed"
			l.addEntryLocked(jobID, "error", StageReport, "analysis failed", nil, errorMsg)
		}
	}
}

// Log adds a log entry for a job, attributed to one pipeline stage, with an
// optional snapshot of named signal values the stage had in hand.
func (l *Logger) Log(jobID, level string, stage Stage, message string, signals map[string]float64, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addEntryLocked(jobID, level, stage, message, signals, details)
}

// Info logs an info message for a stage, with no signal snapshot.
func (l *Logger) Info(jobID string, stage Stage, message string) {
	l.Log(jobID, "info", stage, message, nil, "")
}

// InfoSignals logs an info message for a stage along with the measurement
// or decision values that produced it.
func (l *Logger) InfoSignals(jobID string, stage Stage, message string, signals map[string]float64) {
	l.Log(jobID, "info", stage, message, signals, "")
}

// Debug logs a debug message
func (l *Logger) Debug(jobID string, stage Stage, message, details string) {
	l.Log(jobID, "debug", stage, message, nil, details)
}

// Warn logs a warning message
func (l *Logger) Warn(jobID string, stage Stage, message, details string) {
	l.Log(jobID, "warn", stage, message, nil, details)
}

// Error logs an error message
func (l *Logger) Error(jobID string, stage Stage, message, details string) {
	l.Log(jobID, "error", stage, message, nil, details)
}

func (l *Logger) addEntryLocked(jobID, level string, stage Stage, message string, signals map[string]float64, details string) {
	if job, ok := l.logs[jobID]; ok {
		job.Entries = append(job.Entries, AnalysisLogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Stage:     stage,
			Message:   message,
			Signals:   signals,
			Details:   details,
		})
	}
}

// GetLog returns the log for a specific job (returns interface{} for handler compatibility)
func (l *Logger) GetLog(jobID string) interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if job, ok := l.logs[jobID]; ok {
		// Return a copy
		entriesCopy := make([]AnalysisLogEntry, len(job.Entries))
		copy(entriesCopy, job.Entries)
		return &AnalysisLog{
			JobID:     job.JobID,
			AssetID:   job.AssetID,
			Status:    job.Status,
			StartedAt: job.StartedAt,
			EndedAt:   job.EndedAt,
			Entries:   entriesCopy,
		}
	}
	return nil
}

// GetLogSince returns log entries since a given index (returns interface{} for handler compatibility)
func (l *Logger) GetLogSince(jobID string, sinceIndex int) ([]interface{}, int, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if job, ok := l.logs[jobID]; ok {
		if sinceIndex < 0 {
			sinceIndex = 0
		}
		if sinceIndex >= len(job.Entries) {
			return []interface{}{}, len(job.Entries), job.Status
		}
		entries := job.Entries[sinceIndex:]
		result := make([]interface{}, len(entries))
		for i, e := range entries {
			result[i] = e
		}
		return result, len(job.Entries), job.Status
	}
	return nil, 0, ""
}

// GetRecentJobs returns the most recent job logs (returns interface{} for handler compatibility)
func (l *Logger) GetRecentJobs(limit int) interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.order) {
		limit = len(l.order)
	}

	result := make([]*AnalysisLog, 0, limit)
	for i := len(l.order) - 1; i >= 0 && len(result) < limit; i-- {
		if job, ok := l.logs[l.order[i]]; ok {
			result = append(result, &AnalysisLog{
				JobID:     job.JobID,
				AssetID:   job.AssetID,
				Status:    job.Status,
				StartedAt: job.StartedAt,
				EndedAt:   job.EndedAt,
				Entries:   nil, // Don't include entries in list view
			})
		}
	}
	return result
}

// Global logger instance
var globalLogger = NewLogger(100)

// GetGlobalLogger returns the global job logger
func GetGlobalLogger() *Logger {
	return globalLogger
}

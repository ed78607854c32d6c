package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/classifier"
	"github.com/meridian-audio/sentinel/internal/database"
	"github.com/meridian-audio/sentinel/internal/decision"
	"github.com/meridian-audio/sentinel/internal/measurement"
	"github.com/meridian-audio/sentinel/internal/models"
	"github.com/meridian-audio/sentinel/internal/orchestrator"
	"github.com/meridian-audio/sentinel/internal/probe"
	"github.com/meridian-audio/sentinel/internal/reports"
	"github.com/meridian-audio/sentinel/internal/sentinelerr"
	"github.com/meridian-audio/sentinel/internal/telemetry"
)

// Worker polls the job queue and drives every queued "analyze" job through
// the probe, analyzer, classifier and decision pipeline, persisting the
// resulting asset version, processing-chain entries and report.
type Worker struct {
	db      *database.DB
	adapter probe.Adapter
	reports *reports.Store
	opts    analyzers.Options

	workerCount  int
	pollInterval time.Duration

	running   bool
	runningMu sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewWorker(db *database.DB, adapter probe.Adapter, reportStore *reports.Store, opts analyzers.Options, workerCount int) *Worker {
	return &Worker{
		db:           db,
		adapter:      adapter,
		reports:      reportStore,
		opts:         opts,
		workerCount:  workerCount,
		pollInterval: 5 * time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.runningMu.Lock()
	if w.running {
		w.runningMu.Unlock()
		return
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.runningMu.Unlock()

	log.Info().Int("workers", w.workerCount).Msg("starting job workers")

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

func (w *Worker) Stop() {
	w.runningMu.Lock()
	if !w.running {
		w.runningMu.Unlock()
		return
	}
	w.running = false
	w.runningMu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.wg.Wait()
	log.Info().Msg("job workers stopped")
}

func (w *Worker) workerLoop(ctx context.Context, id int) {
	defer w.wg.Done()

	log.Debug().Int("worker_id", id).Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("worker stopping")
			return
		case <-ticker.C:
			w.processNextJob(ctx, id)
		}
	}
}

func (w *Worker) processNextJob(ctx context.Context, workerID int) {
	job, err := w.db.GetNextJob(ctx, "analyze")
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Msg("failed to get next job")
		}
		return
	}

	logger := GetGlobalLogger()
	logger.StartJob(job.ID, job.TargetID)

	log.Info().
		Str("job_id", job.ID).
		Str("type", job.Type).
		Str("target", job.TargetID).
		Int("worker", workerID).
		Msg("processing job")

	job.Attempts++

	var processErr error
	switch job.Type {
	case "analyze":
		processErr = w.runAnalysis(ctx, job.ID, job.TargetID, logger)
	default:
		log.Warn().Str("type", job.Type).Msg("unknown job type")
		return
	}

	if processErr != nil {
		log.Error().Err(processErr).Str("job_id", job.ID).Msg("job failed")
		logger.EndJob(job.ID, false, processErr.Error())
		job.LastError = sql.NullString{String: processErr.Error(), Valid: true}
		telemetry.JobsProcessed.WithLabelValues(job.Type, "failure").Inc()

		if job.Attempts >= job.MaxAttempts {
			job.Status = models.StatusFailed
			job.FinishedAt = sql.NullTime{Time: time.Now(), Valid: true}
		} else {
			backoff := time.Duration(1<<uint(job.Attempts)) * time.Minute
			job.Status = models.StatusQueued
			job.ScheduledAt = time.Now().Add(backoff)
		}
	} else {
		log.Info().Str("job_id", job.ID).Msg("job completed")
		logger.EndJob(job.ID, true, "")
		job.Status = models.StatusSuccess
		job.FinishedAt = sql.NullTime{Time: time.Now(), Valid: true}
		telemetry.JobsProcessed.WithLabelValues(job.Type, "success").Inc()
	}

	if err := w.db.UpdateJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to update job record")
	}
}

// runAnalysis drives one asset through the full analysis pipeline: probe
// and analyzer fan-out, style classification, risk scoring, decision
// evaluation, and persistence of the resulting version, chain entries and
// report.
func (w *Worker) runAnalysis(ctx context.Context, jobID, assetID string, logger *Logger) error {
	asset, err := w.db.GetAsset(ctx, assetID)
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}

	logger.Info(jobID, StageOrchestrator, "running analyzer fan-out")
	analysisStart := time.Now()
	result, err := orchestrator.AnalyzeAudio(ctx, w.adapter, asset.Path, w.opts, nil, 0)
	telemetry.AnalysisDurationSeconds.Observe(time.Since(analysisStart).Seconds())
	if err != nil {
		return &sentinelerr.ProbeUnavailable{Request: asset.Path, Cause: err}
	}

	signals := measurement.ExtractSignalVector(result.Bundle)
	classification := classifier.Classify(signals)
	risks := decision.ComputeRiskScores(result.Bundle)
	bundle := decision.Evaluate(signals, risks, classification)
	confidence := decision.WeightedConfidence(bundle.RiskWeights, risks)

	logger.InfoSignals(jobID, StageClassifier, fmt.Sprintf("classified as %s", classification.Primary), stringKeyedFloats(classification.Likelihoods))
	logger.InfoSignals(jobID, StageDecision, fmt.Sprintf("%d rules applied, confidence %s", len(bundle.AppliedRules), reports.FormatConfidence(confidence)), stringKeyedFloats(risks))

	existing, err := w.db.ListAssetVersions(ctx, assetID)
	if err != nil {
		return fmt.Errorf("list existing versions: %w", err)
	}
	var parentVersionID sql.NullString
	if len(existing) > 0 {
		parentVersionID = sql.NullString{String: existing[len(existing)-1].ID, Valid: true}
	}

	version := &models.AssetVersion{
		AssetID:            assetID,
		ParentVersionID:    parentVersionID,
		IntegratedLoudness: bundleFloat(result.Bundle, "loudness", func(r measurement.Result) measurement.Null { return r.(measurement.LoudnessRecord).Integrated }),
		TruePeak:           bundleFloat(result.Bundle, "headroom", func(r measurement.Result) measurement.Null { return r.(measurement.PeakRecord).TruePeak }),
		DynamicRange:       bundleFloat(result.Bundle, "headroom", func(r measurement.Result) measurement.Null { return r.(measurement.PeakRecord).CrestFactorDB }),
		Width:              bundleFloat(result.Bundle, "stereo_phase", func(r measurement.Result) measurement.Null { return r.(measurement.StereoPhaseRecord).CorrelationOverall }),
		SpectralBalance:    bundleFloat(result.Bundle, "spectral_balance", func(r measurement.Result) measurement.Null { return r.(measurement.SpectralRecord).DeviationFromRef }),
		SampleRateHz:       result.Info.SampleRate,
		Operations:         bundle.AppliedRules,
	}
	if err := w.db.CreateAssetVersion(ctx, version); err != nil {
		return fmt.Errorf("persist asset version: %w", err)
	}

	for i, ruleID := range bundle.AppliedRules {
		entry := &models.ProcessingChainEntry{
			AssetID:  assetID,
			Stage:    "decision",
			Preset:   ruleID,
			Sequence: i,
		}
		if err := w.db.AppendChainEntry(ctx, entry); err != nil {
			return fmt.Errorf("append chain entry for rule %s: %w", ruleID, err)
		}
	}

	report := reports.Sanitize(reports.Report{
		Type:       reports.TypeMastering,
		Summary:    fmt.Sprintf("Classified as %s; %d decision rules applied.", classification.Primary, len(bundle.AppliedRules)),
		Rationale:  fmt.Sprintf("%d problems identified across the analyzer suite.", len(result.Problems)),
		ImpactAssessment: "Derived constraints recorded against the new asset version.",
		Confidence: reports.FormatConfidence(confidence),
	})

	if _, err := w.reports.Save(ctx, assetID, jobID, version.ID, parentVersionID.String, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	if err := w.db.UpdateAssetStatus(ctx, assetID, models.StatusSuccess, ""); err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}

	return nil
}

// stringKeyedFloats re-keys any string-backed-key map of floats (style
// tags, risk kinds, ...) to plain strings for attaching to a log entry.
func stringKeyedFloats[K ~string](m map[K]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// bundleFloat pulls one Null field out of a named analyzer record, returning
// 0 when the analyzer didn't run or the field was never valid.
func bundleFloat(b *measurement.Bundle, name string, extract func(measurement.Result) measurement.Null) float64 {
	r, ok := b.Get(name)
	if !ok {
		return 0
	}
	n := extract(r)
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Package telemetry exposes the Prometheus counters and histograms the job
// worker and HTTP server report on: jobs processed, analysis duration, and
// compliance evaluation outcomes.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_jobs_processed_total",
		Help: "Number of jobs processed by the worker pool, by type and outcome.",
	}, []string{"type", "outcome"})

	AnalysisDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_analysis_duration_seconds",
		Help:    "Wall-clock duration of one orchestrator analyzeAudio call.",
		Buckets: prometheus.DefBuckets,
	})

	ComplianceEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_compliance_evaluations_total",
		Help: "Number of per-platform compliance evaluations, by platform and status.",
	}, []string{"platform", "status"})
)

func init() {
	prometheus.MustRegister(JobsProcessed, AnalysisDurationSeconds, ComplianceEvaluations)
}

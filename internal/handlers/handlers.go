package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/meridian-audio/sentinel/internal/compliance"
	"github.com/meridian-audio/sentinel/internal/database"
	"github.com/meridian-audio/sentinel/internal/telemetry"
	"github.com/meridian-audio/sentinel/internal/models"
	"github.com/meridian-audio/sentinel/internal/reports"
	"github.com/meridian-audio/sentinel/internal/sentinelerr"
)

var validate = validator.New()

// Handler is the thin HTTP surface over the asset catalog, job queue, and
// analysis outputs. It never runs analysis itself — every submission goes
// through the job queue and is picked up by internal/jobs' Worker.
type Handler struct {
	db                *database.DB
	reports           *reports.Store
	allowedExtensions map[string]bool
}

func New(db *database.DB, reportStore *reports.Store, allowedExtensions []string) *Handler {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[ext] = true
	}
	return &Handler{db: db, reports: reportStore, allowedExtensions: allowed}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetDashboardStats(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// Assets

type CreateAssetRequest struct {
	Path      string `json:"path" validate:"required"`
	Filename  string `json:"filename" validate:"required"`
	Extension string `json:"extension" validate:"required"`
	Size      int64  `json:"size" validate:"gte=0"`
}

// CreateAsset registers a new asset and immediately queues an "analyze" job
// for it — submission and analysis are decoupled so a burst of ingests
// doesn't block on probe/analyzer work.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(h.allowedExtensions) > 0 && !h.allowedExtensions[req.Extension] {
		invalid := &sentinelerr.InvalidInput{Code: sentinelerr.CodeUnsupportedFormat, Path: req.Path}
		h.respondJSON(w, http.StatusUnprocessableEntity, sentinelerr.NewFailureReport(sentinelerr.CategoryIngestion, invalid))
		return
	}

	asset := &models.Asset{
		Path:      req.Path,
		Filename:  req.Filename,
		Extension: req.Extension,
		Size:      req.Size,
	}
	if err := h.db.CreateAsset(r.Context(), asset); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job := &models.Job{
		Type:        "analyze",
		TargetType:  "asset",
		TargetID:    asset.ID,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	if err := h.db.CreateJob(r.Context(), job); err != nil {
		log.Error().Err(err).Str("asset_id", asset.ID).Msg("failed to queue analyze job")
	}

	h.respondJSON(w, http.StatusCreated, asset)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, err := h.db.GetAsset(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	h.respondJSON(w, http.StatusOK, asset)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	assets, total, err := h.db.ListAssets(r.Context(), status, limit, offset)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"assets": assets, "total": total})
}

func (h *Handler) ListAssetVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	versions, err := h.db.ListAssetVersions(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, versions)
}

func (h *Handler) ListChainEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.db.ListChainEntries(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, entries)
}

// Reports

func (h *Handler) GetAssetReports(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rs, err := h.reports.ListByAsset(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, rs)
}

func (h *Handler) GetAssetLineage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	nodes, err := h.reports.GetAssetLineage(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, nodes)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.reports.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "report not found")
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// Compliance

type ComplianceRequest struct {
	Metrics   compliance.Metrics `json:"metrics"`
	Platforms []string           `json:"platforms,omitempty"`
}

func (h *Handler) EvaluateCompliance(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		for id := range compliance.Platforms {
			platforms = append(platforms, id)
		}
	}

	result := compliance.EvaluateAll(req.Metrics, platforms)
	for platform, pr := range result.ByPlatform {
		telemetry.ComplianceEvaluations.WithLabelValues(platform, string(pr.Status)).Inc()
	}
	h.respondJSON(w, http.StatusOK, result)
}

// Jobs

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 50)

	jobs, err := h.db.ListJobs(r.Context(), status, limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, jobs)
}

func (h *Handler) GetJobLog(w http.ResponseWriter, r *http.Request) {
	// Always responds 501 Not Implemented: the handler has no access to the
	// internal/jobs logger, and cmd/server registers no route for it.
	h.respondError(w, http.StatusNotImplemented, "job log retrieval is wired at the router level")
}

// Settings

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	settings, err := h.db.ListSettings(r.Context(), category)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings []models.Setting
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i := range settings {
		if err := h.db.SetSetting(r.Context(), &settings[i]); err != nil {
			h.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

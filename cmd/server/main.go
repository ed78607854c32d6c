package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/config"
	"github.com/meridian-audio/sentinel/internal/database"
	"github.com/meridian-audio/sentinel/internal/handlers"
	"github.com/meridian-audio/sentinel/internal/jobs"
	"github.com/meridian-audio/sentinel/internal/probe"
	"github.com/meridian-audio/sentinel/internal/reports"
)

var (
	version   = "1.0.0"
	buildTime = "development"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting sentinel")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	for _, dir := range []string{cfg.Storage.ArtifactsPath, cfg.Storage.TempPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}

	reportStore := reports.NewStore(db.DB)
	if err := reportStore.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run report migrations")
	}

	adapter := probe.NewFFmpegAdapter(cfg.FFmpeg.FFprobePath, cfg.FFmpeg.FFmpegPath, cfg.Probe.MaxConcurrency)
	opts := analyzers.Options{
		LoudnessTargetLUFS:  -14,
		LoudnessToleranceLU: 1,
		MacroWindowSec:      3,
		MinSectionDurSec:    10,
	}

	h := handlers.New(db, reportStore, cfg.Ingestion.AllowedExtensions)

	worker := jobs.NewWorker(db, adapter, reportStore, opts, cfg.Jobs.WorkerCount)
	worker.Start(context.Background())
	defer worker.Stop()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)
		r.Get("/stats", h.GetDashboardStats)

		r.Get("/assets", h.ListAssets)
		r.Post("/assets", h.CreateAsset)
		r.Get("/assets/{id}", h.GetAsset)
		r.Get("/assets/{id}/versions", h.ListAssetVersions)
		r.Get("/assets/{id}/chain", h.ListChainEntries)
		r.Get("/assets/{id}/reports", h.GetAssetReports)
		r.Get("/assets/{id}/lineage", h.GetAssetLineage)

		r.Get("/reports/{id}", h.GetReport)

		r.Post("/compliance/evaluate", h.EvaluateCompliance)

		r.Get("/jobs", h.ListJobs)

		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.UpdateSettings)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

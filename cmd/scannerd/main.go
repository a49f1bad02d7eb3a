package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/jae-tennis/scan-pipeline/internal/common"
	"github.com/jae-tennis/scan-pipeline/internal/export"
	"github.com/jae-tennis/scan-pipeline/internal/llm/gemini"
	"github.com/jae-tennis/scan-pipeline/internal/lock"
	"github.com/jae-tennis/scan-pipeline/internal/metrics"
	"github.com/jae-tennis/scan-pipeline/internal/pipeline"
	"github.com/jae-tennis/scan-pipeline/internal/quality"
	"github.com/jae-tennis/scan-pipeline/internal/roster"
	"github.com/jae-tennis/scan-pipeline/internal/server"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; the deployed environment injects real variables
	_ = godotenv.Load()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := gcsClient.Close(); cerr != nil {
			logger.Warn("storage client close error", "error", cerr)
		}
	}()

	opener := storage.NewGCSOpener(gcsClient, logger)
	results := opener.Bucket(cfg.Storage.ResultsBucket)
	uploads := opener.Bucket(cfg.Storage.UploadBucket)
	locker := lock.NewLocker(results, logger)

	extractor := gemini.NewClient(gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
		Timeout:     cfg.Gemini.Timeout,
	}, logger)

	pipelineCfg := quality.Config{
		BlurThreshold:       cfg.Quality.PipelineBlurThreshold,
		GlareIntensity:      cfg.Quality.GlareIntensity,
		GlareRatioThreshold: cfg.Quality.GlareRatioThreshold,
		ContrastThreshold:   cfg.Quality.ContrastThreshold,
	}
	uploadCfg := pipelineCfg
	uploadCfg.BlurThreshold = cfg.Quality.UploadBlurThreshold

	m := metrics.New(nil)
	processor := pipeline.NewProcessor(logger, opener, results, locker, pipelineCfg, extractor, m)
	reconciler := roster.NewReconciler(results, logger)
	exporter := export.NewService(reconciler, logger)

	srv := server.New(logger, processor, reconciler, exporter, uploads, uploadCfg, m)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr, "model", cfg.Gemini.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}

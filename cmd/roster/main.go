// Command roster prints the current participant roster or writes it as an
// XLSX workbook, straight from the results bucket.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/jae-tennis/scan-pipeline/internal/common"
	"github.com/jae-tennis/scan-pipeline/internal/export"
	"github.com/jae-tennis/scan-pipeline/internal/roster"
	"github.com/jae-tennis/scan-pipeline/internal/storage"
)

func main() {
	out := flag.String("xlsx", "", "write the roster to this XLSX file instead of printing JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	_ = godotenv.Load()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = gcsClient.Close()
	}()

	results := storage.NewGCSStore(gcsClient, cfg.Storage.ResultsBucket, logger)
	rec := roster.NewReconciler(results, logger)

	if *out != "" {
		b, err := export.NewService(rec, logger).ExportRosterXLSX(ctx)
		if err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, b, 0o644); err != nil {
			logger.Error("write file failed", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("roster exported", "path", *out)
		return
	}

	list, err := rec.List(ctx)
	if err != nil {
		logger.Error("roster build failed", "error", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		logger.Error("encode failed", "error", err)
		os.Exit(1)
	}
}

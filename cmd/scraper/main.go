package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eujobs/scraper/internal/config"
	"github.com/eujobs/scraper/internal/extract"
	"github.com/eujobs/scraper/internal/httpx"
	"github.com/eujobs/scraper/internal/listing"
	"github.com/eujobs/scraper/internal/normalize"
	"github.com/eujobs/scraper/internal/pipeline"
	"github.com/eujobs/scraper/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg == nil {
		return // help requested
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dbStore, err := store.NewStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	workDir, _ := os.Getwd()
	schemaPath := filepath.Join(workDir, "internal", "store", "schema.sql")
	if err := dbStore.RunMigrations(schemaPath); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	client := listing.NewClient(cfg.APIBase, cfg.UserAgent)
	aggregator := listing.NewAggregator(client, cfg.SkipFailedRegions)
	fetcher := httpx.NewFetcher(cfg.UserAgent)
	extractor := extract.New(cfg.EvalTimeout)
	normalizer := normalize.New(cfg.ImageBase, nil)

	run := pipeline.New(cfg, aggregator, fetcher, extractor, normalizer, dbStore)

	report, err := run.Run(context.Background())
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("run finished",
		"listed", report.Listed,
		"scraped", report.Scraped,
		"failures", report.Failures,
	)
}

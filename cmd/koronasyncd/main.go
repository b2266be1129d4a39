package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/dispatch"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/export"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/grouping"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/ledger"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/lineitem"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/pipeline"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/pricing"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/receipt"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/source"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/supplier"
)

func main() {
	var (
		interval = flag.Duration("interval", 0, "re-run every interval (0 runs once and exits)")
		localDir = flag.String("local", "", "read CSVs from a local directory instead of FTP")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := ledger.Open(ctx, cfg.Ledger.DBPath, logger)
	if err != nil {
		logger.Error("failed to open ledger database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close ledger database", "error", err)
		}
	}()

	api, err := korona.NewClient(cfg.Korona, logger)
	if err != nil {
		logger.Error("failed to build korona client", "error", err)
		os.Exit(1)
	}

	runOnce := func() {
		files, err := ledger.OpenProcessedFiles(cfg.Ledger.ProcessedFilesPath, logger)
		if err != nil {
			logger.Error("failed to load processed-files ledger", "error", err)
			return
		}

		var src source.FileSource
		if *localDir != "" {
			src = source.NewDir(*localDir)
		} else {
			ftpSrc, err := source.DialFTP(ctx, cfg.FTP, logger)
			if err != nil {
				logger.Error("failed to connect to ftp source", "error", err)
				return
			}
			defer func() {
				if err := ftpSrc.Close(); err != nil {
					logger.Warn("failed to close ftp connection", "error", err)
				}
			}()
			src = ftpSrc
		}

		// A fresh registrar per run: the supplier cache is run-scoped.
		engine := pricing.NewEngine(cfg.Pipeline.Variant)
		registrar := supplier.NewRegistrar(api, store, logger)
		coord := dispatch.NewCoordinator(
			api,
			registrar,
			receipt.NewBuilder(cfg.Columns),
			lineitem.NewBuilder(cfg.Columns, engine, cfg.Pipeline.RetailerName, logger),
			store,
			logger,
		)
		grouper := grouping.NewGrouper(cfg.Columns, cfg.Pipeline.OrgUnit)
		p := pipeline.New(src, files, grouper, coord, cfg.Pipeline.DataDir, logger)

		start := time.Now()
		results, stats, err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline run failed", "error", err)
			return
		}
		logger.Info("run finished",
			"listed", stats.Listed,
			"processed", stats.Processed,
			"skipped", stats.Skipped,
			"retained", stats.Retained,
			"failed", stats.Failed,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if cfg.Pipeline.ReportDir != "" && len(results) > 0 {
			reporter := export.NewReporter(cfg.Pipeline.ReportDir, logger)
			if _, err := reporter.Write(results, start); err != nil {
				logger.Error("failed to write dispatch report", "error", err)
			}
		}
	}

	runOnce()
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		runOnce()
	}
}

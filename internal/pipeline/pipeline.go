package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/dispatch"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/grouping"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/ledger"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/source"
)

// RunStats summarizes one pipeline run across all files.
type RunStats struct {
	Listed    int
	Skipped   int // already in the processed-files ledger
	Processed int // walked to completion and marked
	Retained  int // walked but left unmarked for retry
	Failed    int // unreadable, left unmarked for retry
}

// Pipeline drives the full ingestion walk for one run: list available
// files, materialize and parse each unprocessed one, group its rows,
// dispatch every invoice group, and mark the file in the run ledger once
// its walk completed. Files are strictly sequential; so is everything
// below them.
type Pipeline struct {
	src     source.FileSource
	files   *ledger.ProcessedFiles
	grouper *grouping.Grouper
	coord   *dispatch.Coordinator
	dataDir string
	logger  *slog.Logger
}

func New(src source.FileSource, files *ledger.ProcessedFiles, grouper *grouping.Grouper, coord *dispatch.Coordinator, dataDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		src:     src,
		files:   files,
		grouper: grouper,
		coord:   coord,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Run executes one full pass. Per-file defects never abort the pass: an
// unreadable file is left unmarked and retried on the next run.
func (p *Pipeline) Run(ctx context.Context) ([]dispatch.FileResult, RunStats, error) {
	names, err := p.src.List(ctx)
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("list source files: %w", err)
	}

	var results []dispatch.FileResult
	stats := RunStats{Listed: len(names)}

	for _, remote := range names {
		name := source.LocalName(remote)
		if p.files.IsProcessed(name) {
			p.logger.Info("pipeline.file.skip_processed", "file", name)
			stats.Skipped++
			continue
		}

		result, err := p.processFile(ctx, remote, name)
		if err != nil {
			p.logger.Error("pipeline.file.failed", "file", name, "error", err)
			stats.Failed++
			continue
		}
		results = append(results, result)

		// "Processed" means attempted to completion, Failed groups
		// included — except groups that never got past the supplier stage,
		// which keep the whole file eligible for retry.
		if result.Done() && !result.SupplierFailed {
			if err := p.files.MarkProcessed(name); err != nil {
				p.logger.Error("pipeline.ledger.mark_failed", "file", name, "error", err)
				stats.Retained++
				continue
			}
			stats.Processed++
		} else {
			p.logger.Warn("pipeline.file.retained_for_retry", "file", name)
			stats.Retained++
		}
	}

	p.logger.Info("pipeline.run.complete",
		"listed", stats.Listed,
		"skipped", stats.Skipped,
		"processed", stats.Processed,
		"retained", stats.Retained,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func (p *Pipeline) processFile(ctx context.Context, remote, name string) (dispatch.FileResult, error) {
	local, err := p.materialize(ctx, remote, name)
	if err != nil {
		return dispatch.FileResult{}, err
	}

	rows, err := p.readRows(local)
	if err != nil {
		return dispatch.FileResult{}, err
	}

	groups := p.grouper.Group(rows)
	p.logCensus(name, groups)

	return p.coord.DispatchFile(ctx, name, groups), nil
}

// materialize copies the remote file into the data directory under its
// forced-.csv name. The local copy is what makes the row sequence
// restartable.
func (p *Pipeline) materialize(ctx context.Context, remote, name string) (string, error) {
	rc, err := p.src.Fetch(ctx, remote)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", remote, err)
	}
	defer rc.Close()

	local := filepath.Join(p.dataDir, name)
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("download %s: %w", remote, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", local, err)
	}
	p.logger.Info("pipeline.file.materialized", "remote", remote, "local", local)
	return local, nil
}

func (p *Pipeline) readRows(path string) ([]csvrow.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csvrow.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func (p *Pipeline) logCensus(name string, groups *grouping.VendorGroups) {
	p.logger.Info("pipeline.groups", "file", name, "vendors", groups.Len())
	for _, vendor := range groups.Vendors() {
		invoices := groups.Invoices(vendor)
		p.logger.Info("pipeline.groups.vendor", "vendor", vendor, "invoices", invoices.Len())
		for _, inv := range invoices.Invoices() {
			p.logger.Debug("pipeline.groups.invoice", "vendor", vendor, "invoice", inv, "rows", len(invoices.Rows(inv)))
		}
	}
}

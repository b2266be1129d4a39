package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/dispatch"
)

// Reporter writes a per-run XLSX workbook of dispatch outcomes, one row per
// invoice group, for the back office to reconcile against vendor statements.
type Reporter struct {
	dir    string
	logger *slog.Logger
}

func NewReporter(dir string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{dir: dir, logger: logger}
}

// Write renders the run's file results and saves the workbook under the
// report directory. Returns the written path.
func (r *Reporter) Write(results []dispatch.FileResult, startedAt time.Time) (string, error) {
	f := excelize.NewFile()
	const sheet = "Dispatch"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Source File",
		"Vendor",
		"Invoice",
		"Receipt Number",
		"State",
		"Items Posted",
		"Skipped",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, fr := range results {
		for _, g := range fr.Groups {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, fr.FileName)
			write(2, g.Vendor)
			write(3, g.Invoice)
			write(4, g.ReceiptNumber)
			write(5, string(g.State))
			write(6, g.Items)
			write(7, g.Skipped)
			write(8, g.Err)
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 32)
	_ = f.SetColWidth(sheet, "B", "B", 26)
	_ = f.SetColWidth(sheet, "C", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 18)
	_ = f.SetColWidth(sheet, "H", "H", 48)

	path := filepath.Join(r.dir, fmt.Sprintf("dispatch-%s.xlsx", startedAt.UTC().Format("20060102-150405")))
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}
	r.logger.Info("export.report.written", "path", path, "rows", row-2)
	return path, nil
}

package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// ProcessedFiles is the resumption checkpoint: a newline-separated,
// append-only list of source file names whose row→invoice→dispatch walk ran
// to completion. A missing ledger file is an empty set, not an error.
type ProcessedFiles struct {
	path   string
	names  map[string]struct{}
	logger *slog.Logger
}

// OpenProcessedFiles reads the whole ledger into memory.
func OpenProcessedFiles(path string, logger *slog.Logger) (*ProcessedFiles, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &ProcessedFiles{path: path, names: make(map[string]struct{}), logger: logger}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("ledger.files.new", "path", path)
			return p, nil
		}
		return nil, fmt.Errorf("open processed-files ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name != "" {
			p.names[name] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read processed-files ledger: %w", err)
	}
	logger.Info("ledger.files.loaded", "path", path, "count", len(p.names))
	return p, nil
}

// IsProcessed reports whether a file name was already walked to completion.
func (p *ProcessedFiles) IsProcessed(name string) bool {
	_, ok := p.names[name]
	return ok
}

// MarkProcessed appends the name to the ledger and the in-memory set. The
// append happens first so a crash between the two cannot lose the record.
func (p *ProcessedFiles) MarkProcessed(name string) error {
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open processed-files ledger for append: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(name + "\n"); err != nil {
		return fmt.Errorf("append processed file: %w", err)
	}
	p.names[name] = struct{}{}
	p.logger.Info("ledger.files.marked", "file", name)
	return nil
}

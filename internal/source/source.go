package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSource lists and fetches vendor export files from wherever the
// retailer drops them. Implementations: FTP for production, Dir for local
// runs and tests.
type FileSource interface {
	// List returns the available remote file names.
	List(ctx context.Context) ([]string, error)
	// Fetch opens the named file for reading. The caller closes it.
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// LocalName forces the materialized name of a remote file to end in .csv,
// whatever the remote side called it. Ledger entries use this name.
func LocalName(remote string) string {
	if strings.HasSuffix(remote, ".csv") {
		return remote
	}
	return remote + ".csv"
}

// Dir serves files straight out of a local directory.
type Dir struct {
	Root string
}

func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *Dir) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Root, name))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return f, nil
}

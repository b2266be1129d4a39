package csvrow

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Row is one CSV record keyed by column header. Values are never mutated
// after a row is produced.
type Row map[string]string

// Get returns the value for key, or fallback when the field is absent or empty.
func (r Row) Get(key, fallback string) string {
	if v, ok := r[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Reader produces a lazy, finite sequence of header-keyed rows from a byte
// stream. The first record is taken as the header row. Restartability is the
// caller's concern: re-open the underlying file and construct a new Reader.
type Reader struct {
	cr      *csv.Reader
	headers []string
}

// NewReader wraps r. The header row is read on the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	// Vendor exports occasionally pad short rows; tolerate ragged records.
	cr.FieldsPerRecord = -1
	return &Reader{cr: cr}
}

// Next returns the next data row, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Row, error) {
	if r.headers == nil {
		hdr, err := r.cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.headers = hdr
	}

	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record: %w", err)
	}

	row := make(Row, len(r.headers))
	for i, h := range r.headers {
		if i < len(rec) {
			row[h] = rec[i]
		} else {
			row[h] = ""
		}
	}
	return row, nil
}

// ReadAll drains the reader into a slice, preserving file order.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

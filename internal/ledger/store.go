package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
)

// Store is the cross-run SQLite ledger: the known-supplier set and the
// per-invoice dispatch outcomes that make partial-file retries idempotent.
type Store interface {
	HasSupplier(ctx context.Context, name string) (bool, error)
	AddSupplier(ctx context.Context, name string) error
	InvoiceState(ctx context.Context, receiptNumber string) (constants.DispatchState, bool, error)
	RecordInvoice(ctx context.Context, receiptNumber, fileName string, state constants.DispatchState) error
	Close() error
}

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the ledger database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// Sequential single-writer access; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS suppliers (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS dispatched_invoices (
	receipt_number TEXT PRIMARY KEY,
	file_name      TEXT NOT NULL,
	state          TEXT NOT NULL,
	updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	logger.Info("ledger.db.opened", "path", path)
	return &sqliteStore{db: db, logger: logger}, nil
}

func (s *sqliteStore) HasSupplier(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM suppliers WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("ledger.supplier.query_failed", "name", name, "error", err)
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) AddSupplier(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO suppliers (name) VALUES (?)`, name); err != nil {
		s.logger.Error("ledger.supplier.insert_failed", "name", name, "error", err)
		return err
	}
	return nil
}

func (s *sqliteStore) InvoiceState(ctx context.Context, receiptNumber string) (constants.DispatchState, bool, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM dispatched_invoices WHERE receipt_number = ?`, receiptNumber).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("ledger.invoice.query_failed", "receipt_number", receiptNumber, "error", err)
		return "", false, err
	}
	return constants.DispatchState(state), true, nil
}

func (s *sqliteStore) RecordInvoice(ctx context.Context, receiptNumber, fileName string, state constants.DispatchState) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dispatched_invoices (receipt_number, file_name, state, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(receipt_number) DO UPDATE SET
	file_name = excluded.file_name,
	state = excluded.state,
	updated_at = CURRENT_TIMESTAMP`,
		receiptNumber, fileName, string(state))
	if err != nil {
		s.logger.Error("ledger.invoice.record_failed", "receipt_number", receiptNumber, "state", state, "error", err)
		return err
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

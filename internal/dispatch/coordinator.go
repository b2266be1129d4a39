package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/grouping"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/ledger"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/lineitem"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/receipt"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/supplier"
)

// GroupResult is the dispatch outcome of one (vendor, invoice) group.
type GroupResult struct {
	Vendor        string
	Invoice       string
	ReceiptNumber string
	State         constants.DispatchState
	Items         int
	Skipped       bool // already dispatched in an earlier run, nothing sent
	Err           string
}

// FileResult summarizes one file's walk across all its invoice groups.
type FileResult struct {
	FileName string
	Groups   []GroupResult
	// SupplierFailed marks that at least one group failed before its
	// supplier existed upstream. Such files stay unmarked in the run
	// ledger so the next run retries them from scratch.
	SupplierFailed bool
}

// Done reports whether every group of the file reached a terminal state.
// Failed counts: a failed group was attempted to completion and is retried
// through the invoice ledger, not by re-walking the file.
func (r FileResult) Done() bool {
	for _, g := range r.Groups {
		if g.Skipped {
			continue
		}
		if !g.State.Terminal() {
			return false
		}
	}
	return true
}

// Coordinator walks one file's invoice groups through the dispatch state
// machine: Grouped → SupplierEnsured → ReceiptCreated → ItemsPosted → Done,
// with terminal Failed reachable from every state. Processing is strictly
// sequential; the API client enforces the inter-call throttle.
type Coordinator struct {
	api       korona.Inventory
	registrar *supplier.Registrar
	receipts  *receipt.Builder
	items     *lineitem.Builder
	store     ledger.Store
	logger    *slog.Logger
}

func NewCoordinator(api korona.Inventory, registrar *supplier.Registrar, receipts *receipt.Builder, items *lineitem.Builder, store ledger.Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		api:       api,
		registrar: registrar,
		receipts:  receipts,
		items:     items,
		store:     store,
		logger:    logger,
	}
}

// DispatchFile dispatches every invoice group of one file. A group failure
// never aborts the walk; the next group proceeds. The per-run
// processedInvoices set treats a cross-vendor collision on an invoice
// number as already handled.
func (c *Coordinator) DispatchFile(ctx context.Context, fileName string, groups *grouping.VendorGroups) FileResult {
	result := FileResult{FileName: fileName}
	processedInvoices := make(map[string]struct{})

	for _, vendor := range groups.Vendors() {
		invoices := groups.Invoices(vendor)
		for _, invoice := range invoices.Invoices() {
			if _, done := processedInvoices[invoice]; done {
				c.logger.Info("dispatch.invoice.skip_duplicate",
					"file", fileName, "vendor", vendor, "invoice", invoice)
				continue
			}

			out := c.dispatchGroup(ctx, fileName, vendor, invoice, invoices.Rows(invoice))
			if out.receiptCreated || out.Skipped {
				processedInvoices[invoice] = struct{}{}
			}
			if out.supplierStage {
				result.SupplierFailed = true
			}
			result.Groups = append(result.Groups, out.GroupResult)
		}
	}
	return result
}

// groupOutcome carries stage markers needed for file-level bookkeeping.
type groupOutcome struct {
	GroupResult
	receiptCreated bool
	supplierStage  bool // failed before the supplier existed upstream
}

func (c *Coordinator) dispatchGroup(ctx context.Context, fileName, vendor, invoice string, rows []csvrow.Row) groupOutcome {
	rcpt := c.receipts.Build(rows, fileName)
	number := receipt.InvoiceNumberKey(invoice)
	rcpt.Number = number

	out := groupOutcome{GroupResult: GroupResult{
		Vendor:        vendor,
		Invoice:       invoice,
		ReceiptNumber: number,
		State:         constants.StateGrouped,
	}}

	// Receipts that reached Done in an earlier run are never re-sent; this
	// is what makes a partial-file retry safe against duplicate items.
	if state, known, err := c.store.InvoiceState(ctx, number); err == nil && known && state == constants.StateDone {
		c.logger.Info("dispatch.invoice.already_done", "file", fileName, "receipt_number", number)
		out.State = constants.StateDone
		out.Skipped = true
		return out
	}

	if err := c.registrar.Ensure(ctx, vendor); err != nil {
		c.logger.Error("dispatch.supplier.failed",
			"file", fileName, "vendor", vendor, "invoice", invoice, "error", err)
		out.State = constants.StateFailed
		out.Err = err.Error()
		out.supplierStage = true
		c.record(ctx, number, fileName, constants.StateFailed)
		return out
	}
	out.State = constants.StateSupplierEnsured

	if _, err := c.api.CreateDispatchNotification(ctx, c.toNotification(rcpt)); err != nil {
		c.logger.Error("dispatch.receipt.failed",
			"file", fileName, "vendor", vendor, "receipt_number", number, "error", err)
		out.State = constants.StateFailed
		out.Err = err.Error()
		c.record(ctx, number, fileName, constants.StateFailed)
		return out
	}
	out.State = constants.StateReceiptCreated
	out.receiptCreated = true
	c.record(ctx, number, fileName, constants.StateReceiptCreated)
	c.logger.Info("dispatch.receipt.created",
		"file", fileName, "vendor", vendor, "receipt_number", number)

	items := c.items.Build(rows, vendor)
	out.Items = len(items)
	if len(items) > 0 {
		if err := c.api.PostItems(ctx, number, items); err != nil {
			// Business rejections inside an HTTP 200 land here too.
			c.logger.Error("dispatch.items.failed",
				"file", fileName, "receipt_number", number,
				"items", len(items),
				"business_rejection", errors.Is(err, korona.ErrBusinessRejected),
				"error", err)
			out.State = constants.StateFailed
			out.Err = err.Error()
			c.record(ctx, number, fileName, constants.StateFailed)
			return out
		}
		out.State = constants.StateItemsPosted
		c.logger.Info("dispatch.items.posted",
			"file", fileName, "receipt_number", number, "items", len(items))
	} else {
		c.logger.Info("dispatch.items.empty", "file", fileName, "receipt_number", number)
	}

	out.State = constants.StateDone
	c.record(ctx, number, fileName, constants.StateDone)
	return out
}

func (c *Coordinator) toNotification(r receipt.Receipt) korona.DispatchNotification {
	return korona.DispatchNotification{
		Number:             r.Number,
		Cashier:            korona.NumberRef{Number: "1"},
		Description:        r.Description,
		ItemsCount:         0,
		OrganizationalUnit: korona.NumberRef{Number: r.OrgUnit},
		Supplier:           korona.NameRef{Name: r.SupplierName},
		Comment:            r.Comment,
	}
}

// record persists the invoice outcome; ledger write failures are logged and
// swallowed because the dispatch itself already happened.
func (c *Coordinator) record(ctx context.Context, number, fileName string, state constants.DispatchState) {
	if err := c.store.RecordInvoice(ctx, number, fileName, state); err != nil {
		c.logger.Warn("dispatch.ledger.record_failed",
			"receipt_number", number, "state", state, "error", err)
	}
}

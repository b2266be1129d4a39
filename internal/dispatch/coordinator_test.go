package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/grouping"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/lineitem"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/pricing"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/receipt"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/supplier"
)

type stubAPI struct {
	createErr error
	postErr   error

	created []korona.DispatchNotification
	posted  map[string]int // receipt id -> item count
}

func newStubAPI() *stubAPI { return &stubAPI{posted: make(map[string]int)} }

func (s *stubAPI) ListSuppliers(context.Context) ([]korona.Supplier, error) { return nil, nil }

func (s *stubAPI) UpsertSupplier(context.Context, string) error { return nil }

func (s *stubAPI) CreateDispatchNotification(_ context.Context, dn korona.DispatchNotification) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, dn)
	return dn.Number, nil
}

func (s *stubAPI) PostItems(_ context.Context, receiptID string, items []korona.Item) error {
	if s.postErr != nil {
		return s.postErr
	}
	s.posted[receiptID] = len(items)
	return nil
}

type failingSupplierAPI struct{ stubAPI }

func (f *failingSupplierAPI) UpsertSupplier(context.Context, string) error {
	return errors.New("supplier unavailable")
}

type memStore struct {
	states map[string]constants.DispatchState
}

func newMemStore() *memStore { return &memStore{states: make(map[string]constants.DispatchState)} }

func (m *memStore) HasSupplier(context.Context, string) (bool, error) { return false, nil }

func (m *memStore) AddSupplier(context.Context, string) error { return nil }

func (m *memStore) InvoiceState(_ context.Context, number string) (constants.DispatchState, bool, error) {
	state, ok := m.states[number]
	return state, ok, nil
}

func (m *memStore) RecordInvoice(_ context.Context, number, _ string, state constants.DispatchState) error {
	m.states[number] = state
	return nil
}

func (m *memStore) Close() error { return nil }

func newCoordinator(api korona.Inventory, store *memStore) *Coordinator {
	cols := config.DefaultColumns()
	engine := pricing.NewEngine(config.VariantStrict)
	return NewCoordinator(
		api,
		supplier.NewRegistrar(api, store, nil),
		receipt.NewBuilder(cols),
		lineitem.NewBuilder(cols, engine, "TestMart", nil),
		store,
		nil,
	)
}

func groupRows(t *testing.T, rows []csvrow.Row) *grouping.VendorGroups {
	t.Helper()
	return grouping.NewGrouper(config.DefaultColumns(), "").Group(rows)
}

func invoiceRow(vendor, invoice, upc string) csvrow.Row {
	return csvrow.Row{
		"Vendor Name":     vendor,
		"Invoice Number":  invoice,
		"Invoice Date":    "2024-03-01",
		"Quantity":        "2",
		"Unit Cost":       "12",
		"Packs Per Case":  "6",
		"Units Per Pack":  "4",
		"Unit Of Measure": "CA",
		"Pack UPC":        upc,
	}
}

func TestDispatchFile_HappyPath(t *testing.T) {
	api := newStubAPI()
	store := newMemStore()
	c := newCoordinator(api, store)

	groups := groupRows(t, []csvrow.Row{
		invoiceRow("Acme", "INV-1", "100"),
		invoiceRow("Acme", "INV-1", "200"),
	})
	result := c.DispatchFile(context.Background(), "f.csv", groups)

	if len(result.Groups) != 1 {
		t.Fatalf("groups = %d", len(result.Groups))
	}
	g := result.Groups[0]
	if g.State != constants.StateDone {
		t.Errorf("state = %s", g.State)
	}
	if g.ReceiptNumber != "Invoice-INV-1" {
		t.Errorf("receipt number = %q", g.ReceiptNumber)
	}
	if g.Items != 2 {
		t.Errorf("items = %d", g.Items)
	}
	if !result.Done() {
		t.Error("file should count as done")
	}
	if result.SupplierFailed {
		t.Error("no supplier failure expected")
	}

	if len(api.created) != 1 {
		t.Fatalf("created notifications = %d", len(api.created))
	}
	if api.created[0].Number != "Invoice-INV-1" {
		t.Errorf("notification number = %q", api.created[0].Number)
	}
	if api.posted["Invoice-INV-1"] != 2 {
		t.Errorf("posted items = %d", api.posted["Invoice-INV-1"])
	}
	if store.states["Invoice-INV-1"] != constants.StateDone {
		t.Errorf("ledger state = %s", store.states["Invoice-INV-1"])
	}
}

func TestDispatchFile_AlreadyDoneIsSkipped(t *testing.T) {
	api := newStubAPI()
	store := newMemStore()
	store.states["Invoice-INV-1"] = constants.StateDone
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv",
		groupRows(t, []csvrow.Row{invoiceRow("Acme", "INV-1", "100")}))

	g := result.Groups[0]
	if !g.Skipped || g.State != constants.StateDone {
		t.Errorf("group = %+v, want skipped Done", g)
	}
	if len(api.created) != 0 || len(api.posted) != 0 {
		t.Error("nothing should be sent for an already-done receipt")
	}
}

func TestDispatchFile_FailedStateIsRetried(t *testing.T) {
	api := newStubAPI()
	store := newMemStore()
	store.states["Invoice-INV-1"] = constants.StateFailed
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv",
		groupRows(t, []csvrow.Row{invoiceRow("Acme", "INV-1", "100")}))

	if result.Groups[0].State != constants.StateDone {
		t.Errorf("state = %s, want a fresh dispatch", result.Groups[0].State)
	}
	if len(api.created) != 1 {
		t.Errorf("created = %d, want the retry to go through", len(api.created))
	}
}

func TestDispatchFile_SupplierFailureMarksFile(t *testing.T) {
	api := &failingSupplierAPI{stubAPI: *newStubAPI()}
	store := newMemStore()
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv",
		groupRows(t, []csvrow.Row{invoiceRow("Acme", "INV-1", "100")}))

	if !result.SupplierFailed {
		t.Error("expected supplier-stage failure to be flagged")
	}
	g := result.Groups[0]
	if g.State != constants.StateFailed || g.Err == "" {
		t.Errorf("group = %+v", g)
	}
	if len(api.created) != 0 {
		t.Error("no receipt should be created after a supplier failure")
	}
	if store.states["Invoice-INV-1"] != constants.StateFailed {
		t.Errorf("ledger state = %s", store.states["Invoice-INV-1"])
	}
}

func TestDispatchFile_ReceiptFailureDoesNotAbortWalk(t *testing.T) {
	api := newStubAPI()
	api.createErr = errors.New("upstream down")
	store := newMemStore()
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv", groupRows(t, []csvrow.Row{
		invoiceRow("Acme", "INV-1", "100"),
		invoiceRow("Brew Co", "INV-2", "200"),
	}))

	if len(result.Groups) != 2 {
		t.Fatalf("groups = %d, want both attempted", len(result.Groups))
	}
	for _, g := range result.Groups {
		if g.State != constants.StateFailed {
			t.Errorf("group %s state = %s", g.Invoice, g.State)
		}
	}
	if result.SupplierFailed {
		t.Error("failure is past the supplier stage")
	}
	if !result.Done() {
		t.Error("receipt-stage failures still complete the file walk")
	}
}

func TestDispatchFile_BusinessRejectionFailsGroup(t *testing.T) {
	api := newStubAPI()
	api.postErr = fmt.Errorf("post items: %w", korona.ErrBusinessRejected)
	store := newMemStore()
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv",
		groupRows(t, []csvrow.Row{invoiceRow("Acme", "INV-1", "100")}))

	g := result.Groups[0]
	if g.State != constants.StateFailed {
		t.Errorf("state = %s", g.State)
	}
	if store.states["Invoice-INV-1"] != constants.StateFailed {
		t.Errorf("ledger state = %s", store.states["Invoice-INV-1"])
	}
}

func TestDispatchFile_DuplicateInvoiceAcrossVendors(t *testing.T) {
	api := newStubAPI()
	store := newMemStore()
	c := newCoordinator(api, store)

	result := c.DispatchFile(context.Background(), "f.csv", groupRows(t, []csvrow.Row{
		invoiceRow("Acme", "INV-1", "100"),
		invoiceRow("Brew Co", "INV-1", "200"),
	}))

	// The second vendor's group collides on the invoice number and is not
	// dispatched again.
	if len(result.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(result.Groups))
	}
	if len(api.created) != 1 {
		t.Errorf("created = %d, want 1", len(api.created))
	}
	if result.Groups[0].Vendor != "Acme" {
		t.Errorf("dispatched vendor = %q", result.Groups[0].Vendor)
	}
}

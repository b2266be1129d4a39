package supplier

import (
	"context"
	"errors"
	"testing"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
)

type stubInventory struct {
	suppliers []korona.Supplier
	listErr   error
	upsertErr error

	listCalls   int
	upsertCalls []string
}

func (s *stubInventory) ListSuppliers(context.Context) ([]korona.Supplier, error) {
	s.listCalls++
	return s.suppliers, s.listErr
}

func (s *stubInventory) UpsertSupplier(_ context.Context, name string) error {
	s.upsertCalls = append(s.upsertCalls, name)
	return s.upsertErr
}

func (s *stubInventory) CreateDispatchNotification(context.Context, korona.DispatchNotification) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubInventory) PostItems(context.Context, string, []korona.Item) error {
	return errors.New("not implemented")
}

type memStore struct {
	suppliers map[string]struct{}
	hasErr    error
	addErr    error
	addCalls  int
}

func newMemStore() *memStore { return &memStore{suppliers: make(map[string]struct{})} }

func (m *memStore) HasSupplier(_ context.Context, name string) (bool, error) {
	if m.hasErr != nil {
		return false, m.hasErr
	}
	_, ok := m.suppliers[name]
	return ok, nil
}

func (m *memStore) AddSupplier(_ context.Context, name string) error {
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	m.suppliers[name] = struct{}{}
	return nil
}

func (m *memStore) InvoiceState(context.Context, string) (constants.DispatchState, bool, error) {
	return "", false, nil
}

func (m *memStore) RecordInvoice(context.Context, string, string, constants.DispatchState) error {
	return nil
}

func (m *memStore) Close() error { return nil }

func TestEnsure_CreatesAtMostOncePerRun(t *testing.T) {
	api := &stubInventory{}
	r := NewRegistrar(api, newMemStore(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.Ensure(ctx, "Acme Beverages"); err != nil {
			t.Fatal(err)
		}
	}

	if len(api.upsertCalls) != 1 {
		t.Errorf("upsert calls = %v, want exactly one", api.upsertCalls)
	}
	if api.listCalls != 1 {
		t.Errorf("list calls = %d, want exactly one hydration", api.listCalls)
	}
}

func TestEnsure_UpstreamListShortCircuits(t *testing.T) {
	api := &stubInventory{suppliers: []korona.Supplier{{Name: "Acme Beverages"}}}
	r := NewRegistrar(api, newMemStore(), nil)

	if err := r.Ensure(context.Background(), "Acme Beverages"); err != nil {
		t.Fatal(err)
	}
	if len(api.upsertCalls) != 0 {
		t.Errorf("supplier already upstream, upsert calls = %v", api.upsertCalls)
	}
}

func TestEnsure_LedgerHitSkipsUpsert(t *testing.T) {
	api := &stubInventory{}
	store := newMemStore()
	store.suppliers["Acme Beverages"] = struct{}{}
	r := NewRegistrar(api, store, nil)

	if err := r.Ensure(context.Background(), "Acme Beverages"); err != nil {
		t.Fatal(err)
	}
	if len(api.upsertCalls) != 0 {
		t.Errorf("ledger-known supplier, upsert calls = %v", api.upsertCalls)
	}
}

func TestEnsure_HydrationFailurePropagates(t *testing.T) {
	api := &stubInventory{listErr: errors.New("boom")}
	r := NewRegistrar(api, newMemStore(), nil)

	if err := r.Ensure(context.Background(), "Acme Beverages"); err == nil {
		t.Fatal("expected error")
	}
	if len(api.upsertCalls) != 0 {
		t.Errorf("no upsert should happen without hydration, got %v", api.upsertCalls)
	}
}

func TestEnsure_UpsertFailureLeavesStateUntouched(t *testing.T) {
	api := &stubInventory{upsertErr: errors.New("boom")}
	store := newMemStore()
	r := NewRegistrar(api, store, nil)
	ctx := context.Background()

	if err := r.Ensure(ctx, "Acme Beverages"); err == nil {
		t.Fatal("expected error")
	}
	if store.addCalls != 0 {
		t.Errorf("ledger writes = %d, want none after a failed upsert", store.addCalls)
	}

	// The failed name is not cached, so a retry reaches the API again.
	api.upsertErr = nil
	if err := r.Ensure(ctx, "Acme Beverages"); err != nil {
		t.Fatal(err)
	}
	if len(api.upsertCalls) != 2 {
		t.Errorf("upsert calls = %v, want a retry", api.upsertCalls)
	}
}

func TestEnsure_LedgerWriteFailureIsNotFatal(t *testing.T) {
	api := &stubInventory{}
	store := newMemStore()
	store.addErr = errors.New("disk full")
	r := NewRegistrar(api, store, nil)

	if err := r.Ensure(context.Background(), "Acme Beverages"); err != nil {
		t.Fatalf("ledger write failure should not fail the ensure: %v", err)
	}
	// Still cached for the rest of the run.
	if err := r.Ensure(context.Background(), "Acme Beverages"); err != nil {
		t.Fatal(err)
	}
	if len(api.upsertCalls) != 1 {
		t.Errorf("upsert calls = %v, want one", api.upsertCalls)
	}
}

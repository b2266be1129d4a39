package supplier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/ledger"
)

// Registrar ensures a supplier exists upstream at most once. Lookup order:
// the in-run cache (hydrated lazily from the upstream supplier list), the
// persistent ledger, and finally an upsert call. The cache is owned by the
// registrar instance, never shared process-wide, so a fresh registrar per
// run starts cold by construction.
type Registrar struct {
	api      korona.Inventory
	store    ledger.Store
	logger   *slog.Logger
	cache    map[string]struct{}
	hydrated bool
}

func NewRegistrar(api korona.Inventory, store ledger.Store, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		api:    api,
		store:  store,
		logger: logger,
		cache:  make(map[string]struct{}),
	}
}

// Ensure makes sure the named supplier exists upstream. A hydration failure
// is returned as-is: supplier creation cannot proceed reliably without the
// upstream list, and the caller decides how much of the run to abandon.
// An upsert failure mutates neither cache nor ledger, so the next attempt
// retries from scratch.
func (r *Registrar) Ensure(ctx context.Context, name string) error {
	if err := r.hydrate(ctx); err != nil {
		return err
	}

	if _, ok := r.cache[name]; ok {
		r.logger.Debug("supplier.cache.hit", "name", name)
		return nil
	}

	known, err := r.store.HasSupplier(ctx, name)
	if err != nil {
		return fmt.Errorf("check supplier ledger: %w", err)
	}
	if known {
		r.logger.Debug("supplier.ledger.hit", "name", name)
		r.cache[name] = struct{}{}
		return nil
	}

	if err := r.api.UpsertSupplier(ctx, name); err != nil {
		r.logger.Error("supplier.create.failed", "name", name, "error", err)
		return err
	}
	r.logger.Info("supplier.created", "name", name)

	r.cache[name] = struct{}{}
	if err := r.store.AddSupplier(ctx, name); err != nil {
		// The upstream record exists; a ledger write failure only costs an
		// extra existence check on the next run.
		r.logger.Warn("supplier.ledger.insert_failed", "name", name, "error", err)
	}
	return nil
}

// hydrate loads the upstream supplier list into the cache, once per
// registrar lifetime.
func (r *Registrar) hydrate(ctx context.Context) error {
	if r.hydrated {
		return nil
	}
	suppliers, err := r.api.ListSuppliers(ctx)
	if err != nil {
		return fmt.Errorf("hydrate supplier cache: %w", err)
	}
	for _, s := range suppliers {
		r.cache[s.Name] = struct{}{}
	}
	r.hydrated = true
	r.logger.Info("supplier.cache.hydrated", "count", len(suppliers))
	return nil
}

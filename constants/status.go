package constants

// DispatchState is the canonical per-invoice-group state tracked by the
// dispatch coordinator and persisted in the invoice ledger.
type DispatchState string

// Stable values (store these exact strings in the ledger).
const (
	StateGrouped         DispatchState = "GROUPED"          // rows grouped, nothing sent
	StateSupplierEnsured DispatchState = "SUPPLIER_ENSURED" // supplier exists upstream
	StateReceiptCreated  DispatchState = "RECEIPT_CREATED"  // dispatch notification created
	StateItemsPosted     DispatchState = "ITEMS_POSTED"     // line items accepted
	StateDone            DispatchState = "DONE"             // terminal success
	StateFailed          DispatchState = "FAILED"           // terminal failure
)

// Terminal reports whether no further transition is possible from s.
func (s DispatchState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

package grouping

import (
	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
)

// InvoiceGroups is an insertion-ordered map of invoice number to the rows
// that carry it. Row order within a group is source file order.
type InvoiceGroups struct {
	order []string
	rows  map[string][]csvrow.Row
}

// Invoices returns invoice numbers in first-seen order.
func (g *InvoiceGroups) Invoices() []string { return g.order }

// Rows returns the rows for an invoice number, nil when unknown.
func (g *InvoiceGroups) Rows(invoice string) []csvrow.Row { return g.rows[invoice] }

// Len returns the number of distinct invoices.
func (g *InvoiceGroups) Len() int { return len(g.order) }

func (g *InvoiceGroups) add(invoice string, row csvrow.Row) {
	if g.rows == nil {
		g.rows = make(map[string][]csvrow.Row)
	}
	if _, ok := g.rows[invoice]; !ok {
		g.order = append(g.order, invoice)
	}
	g.rows[invoice] = append(g.rows[invoice], row)
}

// VendorGroups is an insertion-ordered map of vendor name to that vendor's
// invoice groups. Every row of a file lands in exactly one (vendor, invoice)
// bucket.
type VendorGroups struct {
	order    []string
	invoices map[string]*InvoiceGroups
}

// Vendors returns vendor names in first-seen order.
func (g *VendorGroups) Vendors() []string { return g.order }

// Invoices returns the invoice groups for a vendor, nil when unknown.
func (g *VendorGroups) Invoices(vendor string) *InvoiceGroups { return g.invoices[vendor] }

// Len returns the number of distinct vendors.
func (g *VendorGroups) Len() int { return len(g.order) }

func (g *VendorGroups) add(vendor, invoice string, row csvrow.Row) {
	if g.invoices == nil {
		g.invoices = make(map[string]*InvoiceGroups)
	}
	ig, ok := g.invoices[vendor]
	if !ok {
		ig = &InvoiceGroups{}
		g.invoices[vendor] = ig
		g.order = append(g.order, vendor)
	}
	ig.add(invoice, row)
}

// Grouper partitions a file's rows by vendor name, then by invoice number.
type Grouper struct {
	cols config.ColumnMap
	// orgUnit restricts grouping to rows of a single store; "" disables the
	// filter. Excluded rows are a scope decision, not an error.
	orgUnit string
}

func NewGrouper(cols config.ColumnMap, orgUnit string) *Grouper {
	return &Grouper{cols: cols, orgUnit: orgUnit}
}

// Group buckets rows into ordered vendor → invoice → rows maps. Rows with a
// missing vendor land under the literal "Unknown" vendor; a missing invoice
// number gets the UnknownInvoiceNumber sentinel.
func (g *Grouper) Group(rows []csvrow.Row) *VendorGroups {
	out := &VendorGroups{}
	for _, row := range rows {
		if g.orgUnit != "" && row[g.cols.StoreNumber] != g.orgUnit {
			continue
		}
		vendor := row.Get(g.cols.VendorName, constants.UnknownVendor)
		invoice := row.Get(g.cols.InvoiceNumber, constants.UnknownInvoiceNumber)
		out.add(vendor, invoice, row)
	}
	return out
}

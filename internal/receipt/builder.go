package receipt

import (
	"fmt"
	"time"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
)

// Receipt is the header record for one invoice group, the first-stage
// payload of the two-stage dispatch protocol.
type Receipt struct {
	// Number is the join key for the item-posting stage. It starts as the
	// sanitized file+vendor form and is rewritten to the invoice form by the
	// coordinator once groups are keyed by invoice number.
	Number        string
	SupplierName  string
	Description   string
	OrgUnit       string
	Comment       string
	VendorName    string
	InvoiceNumber string
	InvoiceDate   string
}

// InvoiceNumberKey is the second-stage receipt number, stable and unique per
// (file, invoice) because invoice numbers are unique within a vendor's file.
func InvoiceNumberKey(invoiceNumber string) string {
	return "Invoice-" + invoiceNumber
}

// Builder builds receipt headers from grouped rows.
type Builder struct {
	cols config.ColumnMap
	now  func() time.Time
}

func NewBuilder(cols config.ColumnMap) *Builder {
	return &Builder{cols: cols, now: time.Now}
}

// Build derives one receipt header from an invoice group. Only the first row
// is canonical for header fields; later rows feed line items exclusively,
// even when they disagree with the first.
func (b *Builder) Build(rows []csvrow.Row, fileID string) Receipt {
	if len(rows) == 0 {
		return Receipt{}
	}
	first := rows[0]

	vendor := first.Get(b.cols.VendorName, "")
	supplierVendor := vendor
	if supplierVendor == "" {
		supplierVendor = constants.UnknownVendorLabel
	}

	invoiceNumber := first.Get(b.cols.InvoiceNumber, "")
	invoiceDate := first.Get(b.cols.InvoiceDate, constants.UnknownInvoiceDate)

	descInvoice := invoiceNumber
	if descInvoice == "" {
		descInvoice = constants.UnknownInvoiceNumber
	}

	now := b.now()
	stamp := fmt.Sprintf("%d/%d/%d", int(now.Month()), now.Day(), now.Year())

	return Receipt{
		Number:        Sanitize(fileID + supplierVendor),
		SupplierName:  SanitizeKeepParens(supplierVendor),
		Description:   fmt.Sprintf("DATE:%s INVOICES#%s", invoiceDate, descInvoice),
		OrgUnit:       StripLeadingZeros(first[b.cols.StoreNumber]),
		Comment:       "processed by api on " + stamp,
		VendorName:    vendor,
		InvoiceNumber: invoiceNumber,
		InvoiceDate:   invoiceDate,
	}
}

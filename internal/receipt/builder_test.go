package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
)

func fixedBuilder() *Builder {
	b := NewBuilder(config.DefaultColumns())
	b.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	return b
}

func TestBuild_HeaderFromFirstRowOnly(t *testing.T) {
	rows := []csvrow.Row{
		{
			"Vendor Name":           "Acme Beverages",
			"Invoice Number":        "INV-100",
			"Invoice Date":          "2024-03-01",
			"Retailer Store Number": "000003",
		},
		{
			// A disagreeing second row must not influence the header.
			"Vendor Name":           "Someone Else",
			"Invoice Number":        "INV-999",
			"Invoice Date":          "2023-01-01",
			"Retailer Store Number": "000099",
		},
	}

	r := fixedBuilder().Build(rows, "export1.csv")

	if r.VendorName != "Acme Beverages" {
		t.Errorf("vendor = %q", r.VendorName)
	}
	if r.Number != Sanitize("export1.csvAcme Beverages") {
		t.Errorf("number = %q", r.Number)
	}
	if r.SupplierName != "Acme Beverages" {
		t.Errorf("supplier = %q", r.SupplierName)
	}
	if r.OrgUnit != "3" {
		t.Errorf("org unit = %q, want leading zeros stripped", r.OrgUnit)
	}
	if r.Description != "DATE:2024-03-01 INVOICES#INV-100" {
		t.Errorf("description = %q", r.Description)
	}
	if r.Comment != "processed by api on 3/9/2024" {
		t.Errorf("comment = %q", r.Comment)
	}
}

func TestBuild_MissingFieldsUseSentinels(t *testing.T) {
	rows := []csvrow.Row{{"Retailer Store Number": "000003"}}
	r := fixedBuilder().Build(rows, "f.csv")

	if !strings.Contains(r.Number, Sanitize("$UnknownVendor")) {
		t.Errorf("number %q should embed the unknown-vendor sentinel", r.Number)
	}
	if r.SupplierName != "$UnknownVendor" {
		t.Errorf("supplier = %q", r.SupplierName)
	}
	if r.Description != "DATE:$UnknownInvoiceDate INVOICES#UnknownInvoiceNumber" {
		t.Errorf("description = %q", r.Description)
	}
}

func TestBuild_EmptyGroup(t *testing.T) {
	r := fixedBuilder().Build(nil, "f.csv")
	if r != (Receipt{}) {
		t.Errorf("empty group should produce a zero receipt, got %+v", r)
	}
}

func TestInvoiceNumberKey(t *testing.T) {
	if got := InvoiceNumberKey("12345"); got != "Invoice-12345" {
		t.Errorf("got %q", got)
	}
}

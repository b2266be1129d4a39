package constants

// Logical CSV fields and their default column headers as they appear in the
// vendor export files. Every one of these can be overridden through
// configuration because vendors do not agree on header spelling.
const (
	DefaultVendorNameKey              = "Vendor Name"
	DefaultInvoiceNumberKey           = "Invoice Number"
	DefaultInvoiceDateKey             = "Invoice Date"
	DefaultProductDescriptionKey      = "Product Description"
	DefaultUnitCostKey                = "Unit Cost"
	DefaultPacksPerCaseKey            = "Packs Per Case"
	DefaultQuantityKey                = "Quantity"
	DefaultPackUPCKey                 = "Pack UPC"
	DefaultCaseUPCKey                 = "Case UPC"
	DefaultGLCodeKey                  = "GL Code"
	DefaultSupplierItemNumberKey      = "Product Number"
	DefaultStoreNumberKey             = "Retailer Store Number"
	DefaultUnitsPerPackKey            = "Units Per Pack"
	DefaultUnitOfMeasureKey           = "Unit Of Measure"
	DefaultDiscountAdjustmentTotalKey = "Discount Adjustment Total"
)

// Fallback values substituted for missing row data. These are part of the
// upstream contract: receipt numbers and descriptions are derived from them,
// so they must stay stable.
const (
	UnknownVendor        = "Unknown"
	UnknownVendorLabel   = "$UnknownVendor"
	UnknownInvoiceNumber = "UnknownInvoiceNumber"
	UnknownInvoiceDate   = "$UnknownInvoiceDate"
	UnknownRetailer      = "Unknown"
	FallbackProductCode  = "1001"
)

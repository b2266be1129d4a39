package lineitem

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/csvrow"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/korona"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/pricing"
	"github.com/moderoemello/korona-ftp-csv-sync/internal/receipt"
)

// Builder turns the rows of one invoice group into dispatch-notification
// line items, one per distinct product code.
type Builder struct {
	cols     config.ColumnMap
	engine   *pricing.Engine
	retailer string
	logger   *slog.Logger
	now      func() time.Time
}

func NewBuilder(cols config.ColumnMap, engine *pricing.Engine, retailer string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cols: cols, engine: engine, retailer: retailer, logger: logger, now: time.Now}
}

// Build constructs one line item per row, deduplicated by product code:
// the first occurrence wins, later duplicates are dropped and the count
// discrepancy is logged. An empty result means the item-posting stage is
// skipped entirely.
func (b *Builder) Build(rows []csvrow.Row, vendorName string) []korona.Item {
	shelfLife := b.now().UTC().Format("2006-01-02T15:04:05Z")

	seen := make(map[string]struct{}, len(rows))
	items := make([]korona.Item, 0, len(rows))
	for _, row := range rows {
		item := b.buildOne(row, vendorName, shelfLife)
		if _, dup := seen[item.Identification.ProductCode]; dup {
			continue
		}
		seen[item.Identification.ProductCode] = struct{}{}
		items = append(items, item)
	}

	if len(items) != len(rows) {
		b.logger.Warn("lineitem.dedup.dropped_rows",
			"vendor", vendorName,
			"rows", len(rows),
			"unique_items", len(items),
		)
	}
	return items
}

func (b *Builder) buildOne(row csvrow.Row, vendorName, shelfLife string) korona.Item {
	amount := b.engine.CanonicalUnits(
		row[b.cols.Quantity],
		row[b.cols.PacksPerCase],
		row[b.cols.UnitsPerPack],
		row[b.cols.UnitOfMeasure],
		row[b.cols.GLCode],
	)

	value := b.engine.UnitCost(
		row[b.cols.UnitCost],
		row[b.cols.PacksPerCase],
		row[b.cols.UnitsPerPack],
		row[b.cols.UnitOfMeasure],
		row[b.cols.DiscountAdjustmentTotal],
		row[b.cols.Quantity],
		row[b.cols.GLCode],
	)
	if value == 0 {
		b.logger.Error("lineitem.cost.invalid",
			"product", row[b.cols.ProductDescription],
			"unit_cost", row[b.cols.UnitCost],
			"packs_per_case", row[b.cols.PacksPerCase],
			"units_per_pack", row[b.cols.UnitsPerPack],
		)
		value = 1
	}

	code := b.productCode(row)

	supplierCode := row[b.cols.CaseUPC]
	if supplierCode == "" {
		supplierCode = constants.FallbackProductCode
	}

	orderCode := row[b.cols.CaseUPC]
	if orderCode == "" {
		orderCode = row[b.cols.PackUPC]
		if orderCode == "" {
			orderCode = row[b.cols.PackUPC2]
		}
	}

	name := row[b.cols.ProductDescription]
	importName := name
	if importName == "" {
		importName = "Product_Not_Included_In_SHEET"
	}

	commodityGroup := row[b.cols.GLCode]
	if commodityGroup == "" {
		commodityGroup = "API"
	}

	supplierName := vendorName
	if supplierName == "" {
		supplierName = "UNASSIGNED"
	}

	return korona.Item{
		UnitType:  row[b.cols.UnitOfMeasure],
		Name:      name,
		ShelfLife: shelfLife,
		Amount:    korona.Amount{Ordered: amount, Delivered: amount},
		Identification: korona.Identification{
			Buyer:       b.buyer(),
			ProductCode: code,
			Supplier:    supplierCode,
		},
		Container: korona.Container{Quantity: 1},
		ImportData: korona.ImportData{
			Assortment:     korona.NumberRef{Number: "1"},
			CommodityGroup: korona.NameRef{Name: commodityGroup},
			Name:           importName,
			Codes: []korona.ProductCode{
				{ProductCode: code, ContainerSize: 1},
			},
			Sector: korona.NumberRef{Number: "1"},
			SupplierPrices: []korona.SupplierPrice{
				{
					Supplier:      korona.NameRef{Name: supplierName},
					OrderCode:     orderCode,
					Value:         value,
					ContainerSize: b.containerSize(row),
				},
			},
		},
	}
}

// productCode resolves a row's product identity: pack UPC with leading
// zeros stripped, then case UPC, then the secondary configured product
// number column, then the literal fallback.
func (b *Builder) productCode(row csvrow.Row) string {
	if v := row[b.cols.PackUPC]; v != "" {
		return receipt.StripLeadingZeros(v)
	}
	if v := row[b.cols.CaseUPC]; v != "" {
		return v
	}
	if v := row[b.cols.PackUPC2]; v != "" {
		return v
	}
	return constants.FallbackProductCode
}

func (b *Builder) buyer() string {
	if b.retailer == "" {
		return constants.UnknownRetailer
	}
	return b.retailer
}

// containerSize prefers the per-pack unit count, then the case count,
// then 1.
func (b *Builder) containerSize(row csvrow.Row) int {
	if n, ok := parsePositive(row[b.cols.UnitsPerPack]); ok {
		return n
	}
	if n, ok := parsePositive(row[b.cols.PacksPerCase]); ok {
		return n
	}
	return 1
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

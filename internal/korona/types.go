package korona

// Wire types for the Korona cloud inventory API. Field names follow the
// upstream JSON contract exactly.

// NumberRef references an upstream entity by number.
type NumberRef struct {
	Number string `json:"number"`
}

// NameRef references an upstream entity by name.
type NameRef struct {
	Name string `json:"name"`
}

// Supplier is one upstream supplier record. Identity is the name.
type Supplier struct {
	Name string `json:"name"`
}

// supplierList is the paged GET response for the supplier listing.
type supplierList struct {
	Results []Supplier `json:"results"`
}

// DispatchNotification is the receipt header created in stage one of the
// two-stage dispatch protocol.
type DispatchNotification struct {
	Number             string    `json:"number"`
	Cashier            NumberRef `json:"cashier"`
	Description        string    `json:"description"`
	ItemsCount         int       `json:"itemsCount"`
	OrganizationalUnit NumberRef `json:"organizationalUnit"`
	Supplier           NameRef   `json:"supplier"`
	Comment            string    `json:"comment"`
}

// Amount carries the ordered and delivered canonical unit counts.
type Amount struct {
	Ordered   int `json:"ordered"`
	Delivered int `json:"delivered"`
}

// Identification ties a line item to a product.
type Identification struct {
	Buyer       string `json:"buyer"`
	ProductCode string `json:"productCode"`
	Supplier    string `json:"supplier"`
}

// Container describes the delivery container.
type Container struct {
	Quantity int `json:"quantity"`
}

// ProductCode is one code entry under import data.
type ProductCode struct {
	ProductCode   string `json:"productCode"`
	ContainerSize int    `json:"containerSize"`
}

// SupplierPrice is the per-supplier purchase price of an item.
type SupplierPrice struct {
	Supplier      NameRef `json:"supplier"`
	OrderCode     string  `json:"orderCode"`
	Value         float64 `json:"value"`
	ContainerSize int     `json:"containerSize"`
}

// ImportData is the product-creation payload embedded in a line item when
// the product does not yet exist upstream.
type ImportData struct {
	Assortment     NumberRef       `json:"assortment"`
	CommodityGroup NameRef         `json:"commodityGroup"`
	Name           string          `json:"name"`
	Codes          []ProductCode   `json:"codes"`
	Sector         NumberRef       `json:"sector"`
	SupplierPrices []SupplierPrice `json:"supplierPrices"`
}

// Item is one line item of a dispatch notification, stage two of the
// protocol.
type Item struct {
	UnitType       string         `json:"unitType"`
	Name           string         `json:"name"`
	ShelfLife      string         `json:"shelfLife"`
	Amount         Amount         `json:"amount"`
	Identification Identification `json:"identification"`
	Container      Container      `json:"container"`
	ImportData     ImportData     `json:"importData"`
}

// ItemResult is one element of the item-posting response. The upstream
// service reports business rejections inside an HTTP 200 body, so the
// status of the first element decides success.
type ItemResult struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

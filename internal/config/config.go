package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moderoemello/korona-ftp-csv-sync/constants"
)

// EngineVariant selects which of the two historically observed quantity rule
// sets the pricing engine applies. The variants disagree on one branch and
// cannot be merged without changing produced amounts, so both are kept.
type EngineVariant string

const (
	VariantStrict EngineVariant = "strict"
	VariantLegacy EngineVariant = "legacy"
)

// Config holds all application configuration.
type Config struct {
	FTP      FTPConfig
	Korona   KoronaConfig
	Ledger   LedgerConfig
	Pipeline PipelineConfig
	Columns  ColumnMap
}

// FTPConfig holds remote file source configuration.
type FTPConfig struct {
	Host      string
	User      string
	Password  string
	RemoteDir string
	Timeout   time.Duration
}

// KoronaConfig holds upstream inventory API configuration.
type KoronaConfig struct {
	Cluster   string
	AccountID string
	Username  string
	Password  string
	Timeout   time.Duration
	// Throttle is the fixed pause enforced before every API call.
	Throttle time.Duration
}

// LedgerConfig holds persistence paths for the run ledger.
type LedgerConfig struct {
	// ProcessedFilesPath is the newline-separated list of processed file names.
	ProcessedFilesPath string
	// DBPath is the SQLite database holding supplier and invoice state.
	DBPath string
}

// PipelineConfig holds run-level behavior switches.
type PipelineConfig struct {
	// OrgUnit restricts processing to rows whose store number matches.
	OrgUnit string
	// DataDir is where fetched files are materialized before parsing.
	DataDir string
	// ReportDir is where per-run XLSX dispatch reports are written ("" disables).
	ReportDir string
	// Variant selects the quantity rule set, see EngineVariant.
	Variant EngineVariant
	// RetailerName is the buyer identification stamped on line items.
	RetailerName string
}

// ColumnMap maps logical CSV fields to the literal column headers of the
// vendor export. Loaded from COLUMN_MAP_FILE when set, env-overridable,
// with hard-coded defaults for every field.
type ColumnMap struct {
	VendorName              string `yaml:"vendor_name"`
	InvoiceNumber           string `yaml:"invoice_number"`
	InvoiceDate             string `yaml:"invoice_date"`
	ProductDescription      string `yaml:"product_description"`
	UnitCost                string `yaml:"unit_cost"`
	PacksPerCase            string `yaml:"packs_per_case"`
	Quantity                string `yaml:"quantity"`
	PackUPC                 string `yaml:"pack_upc"`
	PackUPC2                string `yaml:"pack_upc_secondary"`
	CaseUPC                 string `yaml:"case_upc"`
	GLCode                  string `yaml:"gl_code"`
	SupplierItemNumber      string `yaml:"supplier_item_number"`
	StoreNumber             string `yaml:"store_number"`
	UnitsPerPack            string `yaml:"units_per_pack"`
	UnitOfMeasure           string `yaml:"unit_of_measure"`
	DiscountAdjustmentTotal string `yaml:"discount_adjustment_total"`
}

// DefaultColumns returns the column mapping used when nothing is configured.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		VendorName:              constants.DefaultVendorNameKey,
		InvoiceNumber:           constants.DefaultInvoiceNumberKey,
		InvoiceDate:             constants.DefaultInvoiceDateKey,
		ProductDescription:      constants.DefaultProductDescriptionKey,
		UnitCost:                constants.DefaultUnitCostKey,
		PacksPerCase:            constants.DefaultPacksPerCaseKey,
		Quantity:                constants.DefaultQuantityKey,
		PackUPC:                 constants.DefaultPackUPCKey,
		CaseUPC:                 constants.DefaultCaseUPCKey,
		GLCode:                  constants.DefaultGLCodeKey,
		SupplierItemNumber:      constants.DefaultSupplierItemNumberKey,
		StoreNumber:             constants.DefaultStoreNumberKey,
		UnitsPerPack:            constants.DefaultUnitsPerPackKey,
		UnitOfMeasure:           constants.DefaultUnitOfMeasureKey,
		DiscountAdjustmentTotal: constants.DefaultDiscountAdjustmentTotalKey,
	}
}

// LoadConfig loads configuration from environment variables. An optional
// YAML file referenced by COLUMN_MAP_FILE supplies the column mapping;
// individual *_KEY variables override it field by field.
func LoadConfig() (*Config, error) {
	cols := DefaultColumns()
	if path := os.Getenv("COLUMN_MAP_FILE"); path != "" {
		loaded, err := LoadColumnMap(path)
		if err != nil {
			return nil, err
		}
		cols = loaded
	}
	applyColumnOverrides(&cols)

	return &Config{
		FTP: FTPConfig{
			Host:      getEnv("FTP_HOST", ""),
			User:      getEnv("FTP_USER", ""),
			Password:  getEnv("FTP_PASSWORD", ""),
			RemoteDir: getEnv("FTP_REMOTE_DIR", "/OUT"),
			Timeout:   getEnvAsDuration("FTP_TIMEOUT", 30*time.Second),
		},
		Korona: KoronaConfig{
			Cluster:   getEnv("CLUSTER", ""),
			AccountID: getEnv("API_KEY", ""),
			Username:  getEnv("KORONA_USERNAME", ""),
			Password:  getEnv("KORONA_PASSWORD", ""),
			Timeout:   getEnvAsDuration("KORONA_TIMEOUT", 45*time.Second),
			Throttle:  getEnvAsDuration("KORONA_THROTTLE", 500*time.Millisecond),
		},
		Ledger: LedgerConfig{
			ProcessedFilesPath: getEnv("PROCESSED_FILES_PATH", "./uploaded.txt"),
			DBPath:             getEnv("LEDGER_DB_PATH", "./suppliers.db"),
		},
		Pipeline: PipelineConfig{
			OrgUnit:      getEnv("ORG_UNIT_TO_MATCH", "000001"),
			DataDir:      getEnv("DATA_DIR", "."),
			ReportDir:    getEnv("REPORT_DIR", ""),
			Variant:      EngineVariant(getEnv("ENGINE_VARIANT", string(VariantStrict))),
			RetailerName: getEnv("RETAILER_NAME", "unknown"),
		},
		Columns: cols,
	}, nil
}

// LoadColumnMap reads a column mapping YAML file. Fields left empty in the
// file fall back to their defaults.
func LoadColumnMap(path string) (ColumnMap, error) {
	cols := DefaultColumns()
	data, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("read column map: %w", err)
	}
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return cols, fmt.Errorf("parse column map: %w", err)
	}
	merged := DefaultColumns()
	mergeColumns(&merged, cols)
	return merged, nil
}

func mergeColumns(dst *ColumnMap, src ColumnMap) {
	set := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	set(&dst.VendorName, src.VendorName)
	set(&dst.InvoiceNumber, src.InvoiceNumber)
	set(&dst.InvoiceDate, src.InvoiceDate)
	set(&dst.ProductDescription, src.ProductDescription)
	set(&dst.UnitCost, src.UnitCost)
	set(&dst.PacksPerCase, src.PacksPerCase)
	set(&dst.Quantity, src.Quantity)
	set(&dst.PackUPC, src.PackUPC)
	set(&dst.PackUPC2, src.PackUPC2)
	set(&dst.CaseUPC, src.CaseUPC)
	set(&dst.GLCode, src.GLCode)
	set(&dst.SupplierItemNumber, src.SupplierItemNumber)
	set(&dst.StoreNumber, src.StoreNumber)
	set(&dst.UnitsPerPack, src.UnitsPerPack)
	set(&dst.UnitOfMeasure, src.UnitOfMeasure)
	set(&dst.DiscountAdjustmentTotal, src.DiscountAdjustmentTotal)
}

func applyColumnOverrides(cols *ColumnMap) {
	override := func(d *string, key string) {
		if v := os.Getenv(key); v != "" {
			*d = v
		}
	}
	override(&cols.VendorName, "VENDOR_NAME_KEY")
	override(&cols.InvoiceNumber, "INVOICE_NUMBER_KEY")
	override(&cols.InvoiceDate, "INVOICE_DATE_KEY")
	override(&cols.ProductDescription, "PRODUCT_DESCRIPTION_KEY")
	override(&cols.UnitCost, "UNIT_COST_KEY")
	override(&cols.PacksPerCase, "PACKS_PER_CASE_KEY")
	override(&cols.Quantity, "QUANTITY_KEY")
	override(&cols.PackUPC, "PRODUCT_NUMBER_KEY")
	override(&cols.PackUPC2, "PRODUCT_NUMBER_KEY2")
	override(&cols.CaseUPC, "CASE_UPC_KEY")
	override(&cols.GLCode, "GL_CODE_KEY")
	override(&cols.SupplierItemNumber, "SUPPLIER_ITEM_NUMBER")
	override(&cols.StoreNumber, "STORE_NUMBER_KEY")
	override(&cols.UnitsPerPack, "UNITS_PER_PACK")
	override(&cols.UnitOfMeasure, "UNIT_OF_MEASURE")
	override(&cols.DiscountAdjustmentTotal, "DISCOUNT_ADJUSTMENT_TOTAL")
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Korona.Cluster == "" {
		return errors.New("CLUSTER is required")
	}
	if c.Korona.AccountID == "" {
		return errors.New("API_KEY is required")
	}
	if c.Korona.Username == "" || c.Korona.Password == "" {
		return errors.New("KORONA_USERNAME and KORONA_PASSWORD are required")
	}
	if c.Pipeline.Variant != VariantStrict && c.Pipeline.Variant != VariantLegacy {
		return fmt.Errorf("ENGINE_VARIANT must be %q or %q, got %q", VariantStrict, VariantLegacy, c.Pipeline.Variant)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

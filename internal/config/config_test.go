package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadColumnMap_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	content := "vendor_name: Supplier\nquantity: QTY Shipped\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cols, err := LoadColumnMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if cols.VendorName != "Supplier" {
		t.Errorf("vendor name = %q", cols.VendorName)
	}
	if cols.Quantity != "QTY Shipped" {
		t.Errorf("quantity = %q", cols.Quantity)
	}
	if cols.InvoiceNumber != "Invoice Number" {
		t.Errorf("unset field should keep its default, got %q", cols.InvoiceNumber)
	}
}

func TestLoadColumnMap_MissingFile(t *testing.T) {
	if _, err := LoadColumnMap(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadConfig_EnvOverridesColumn(t *testing.T) {
	t.Setenv("VENDOR_NAME_KEY", "Supplier Name")
	t.Setenv("CLUSTER", "x1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Columns.VendorName != "Supplier Name" {
		t.Errorf("vendor name = %q", cfg.Columns.VendorName)
	}
	if cfg.Korona.Cluster != "x1" {
		t.Errorf("cluster = %q", cfg.Korona.Cluster)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Korona: KoronaConfig{
				Cluster:   "x1",
				AccountID: "acct",
				Username:  "u",
				Password:  "p",
			},
			Pipeline: PipelineConfig{Variant: VariantStrict},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	c := base()
	c.Korona.Cluster = ""
	if err := c.Validate(); err == nil {
		t.Error("missing cluster accepted")
	}

	c = base()
	c.Korona.Password = ""
	if err := c.Validate(); err == nil {
		t.Error("missing credentials accepted")
	}

	c = base()
	c.Pipeline.Variant = "whatever"
	if err := c.Validate(); err == nil {
		t.Error("unknown engine variant accepted")
	}
}

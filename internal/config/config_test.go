package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvOwner, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "I_SAE", cfg.Invoice.InvoicePrefix)
	assert.Equal(t, "Q_SAE", cfg.Invoice.QuotationPrefix)
	assert.Equal(t, 3, cfg.Invoice.MaxReferenceRetries)
	_, ok, err := cfg.Invoice.TaxPercentage()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
invoice:
  invoice_prefix: INV
  default_tax_percentage: "17.5"
owner:
  email: file@example.com
mail:
  host: smtp.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	t.Setenv(EnvOwner, "env@example.com")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INV", cfg.Invoice.Prefixes().Invoice)
	assert.Equal(t, "Q_SAE", cfg.Invoice.Prefixes().Quotation)
	assert.Equal(t, "env@example.com", cfg.Owner.Email)
	assert.Equal(t, "smtp.example.com:587", cfg.Mail.Addr())
	assert.False(t, cfg.Mail.Configured(), "from address still missing")

	pct, ok, err := cfg.Invoice.TaxPercentage()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "17.5", pct.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no retries", func(c *Config) { c.Invoice.MaxReferenceRetries = 0 }},
		{"same prefixes", func(c *Config) { c.Invoice.QuotationPrefix = c.Invoice.InvoicePrefix }},
		{"prefix with space", func(c *Config) { c.Invoice.InvoicePrefix = "I SAE" }},
		{"tax over 100", func(c *Config) { c.Invoice.DefaultTaxPercentage = "150" }},
		{"tax not a number", func(c *Config) { c.Invoice.DefaultTaxPercentage = "ten" }},
		{"bad port", func(c *Config) { c.Mail.Host = "smtp"; c.Mail.Port = 0 }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv(EnvOwner, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Owner.Email = "me@example.com"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaultConfigPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", DefaultConfigPath())
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/andy/invoicer/internal/domain"
)

// Environment overrides
const (
	EnvConfigPath = "INVOICER_CONFIG"
	EnvOwner      = "INVOICER_OWNER"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Invoice numbering and totals
	Invoice InvoiceConfig `yaml:"invoice"`

	// Acting owner for CLI and TUI sessions
	Owner OwnerConfig `yaml:"owner"`

	// Outgoing mail for sending invoices
	Mail MailConfig `yaml:"mail"`

	Log LogConfig `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type InvoiceConfig struct {
	InvoicePrefix        string `yaml:"invoice_prefix"`         // e.g. "I_SAE" gives I_SAE-0001
	QuotationPrefix      string `yaml:"quotation_prefix"`       // e.g. "Q_SAE"
	DefaultTaxPercentage string `yaml:"default_tax_percentage"` // Percent, e.g. "17" for 17%; empty for none
	OutputDir            string `yaml:"output_dir"`             // Directory for generated PDFs
	Currency             string `yaml:"currency"`               // Printed before amounts, e.g. "Rs"
	MaxReferenceRetries  int    `yaml:"max_reference_retries"`  // Attempts when a reference number collides
}

type OwnerConfig struct {
	Email string `yaml:"email"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Mode  string `yaml:"mode"`  // development or production
	Level string `yaml:"level"` // debug, info, warn, error
}

// Prefixes returns the reference prefixes for both series
func (c InvoiceConfig) Prefixes() domain.Prefixes {
	return domain.Prefixes{Invoice: c.InvoicePrefix, Quotation: c.QuotationPrefix}
}

// TaxPercentage parses the default tax percentage. ok is false when none is set.
func (c InvoiceConfig) TaxPercentage() (pct decimal.Decimal, ok bool, err error) {
	if strings.TrimSpace(c.DefaultTaxPercentage) == "" {
		return decimal.Zero, false, nil
	}
	pct, err = domain.ParsePercent(c.DefaultTaxPercentage)
	if err != nil {
		return decimal.Zero, false, err
	}
	return pct, true, nil
}

// Configured reports whether enough mail settings exist to send
func (m MailConfig) Configured() bool {
	return m.Host != "" && m.From != ""
}

// Addr returns host:port for the SMTP server
func (m MailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// configDir returns ~/.config/invoicer
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "invoicer")
}

// DefaultConfigPath returns $INVOICER_CONFIG or ~/.config/invoicer/config.yaml
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := configDir()

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "invoicer.db"),
		},
		Invoice: InvoiceConfig{
			InvoicePrefix:       domain.DefaultPrefixes.Invoice,
			QuotationPrefix:     domain.DefaultPrefixes.Quotation,
			OutputDir:           filepath.Join(dir, "invoices"),
			Currency:            "Rs",
			MaxReferenceRetries: 3,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Log: LogConfig{
			Mode:  "development",
			Level: "warn",
		},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist.
// INVOICER_OWNER overrides owner.email.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if owner := os.Getenv(EnvOwner); owner != "" {
		cfg.Owner.Email = owner
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Invoice.MaxReferenceRetries < 1 {
		return fmt.Errorf("config: invoice.max_reference_retries must be at least 1")
	}
	for _, p := range []string{c.Invoice.InvoicePrefix, c.Invoice.QuotationPrefix} {
		if strings.ContainsAny(p, " \t") {
			return fmt.Errorf("config: reference prefix %q must not contain spaces", p)
		}
	}
	if c.Invoice.InvoicePrefix != "" && c.Invoice.InvoicePrefix == c.Invoice.QuotationPrefix {
		return fmt.Errorf("config: invoice and quotation prefixes must differ")
	}
	pct, ok, err := c.Invoice.TaxPercentage()
	if err != nil {
		return fmt.Errorf("config: invoice.default_tax_percentage: %w", err)
	}
	if ok && (pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100))) {
		return fmt.Errorf("config: invoice.default_tax_percentage must be between 0 and 100")
	}
	if c.Mail.Host != "" && (c.Mail.Port <= 0 || c.Mail.Port > 65535) {
		return fmt.Errorf("config: mail.port %d is out of range", c.Mail.Port)
	}
	return nil
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may hold the SMTP password
	return os.WriteFile(path, data, 0600)
}

// EnsureDirectories creates all necessary directories (for database, invoices, etc.)
func (c *Config) EnsureDirectories() error {
	// Create database directory
	dbDir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return err
	}

	// Create invoice output directory
	if err := os.MkdirAll(c.Invoice.OutputDir, 0755); err != nil {
		return err
	}

	return nil
}

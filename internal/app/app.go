package app

import (
	"context"
	"fmt"
	"syscall"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/crypto"
	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/logger"
	"github.com/andy/invoicer/internal/mail"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
)

// App is the dependency injection container for all application components
type App struct {
	Config     *config.Config
	ConfigPath string
	DB         *db.DB
	Log        *logger.Logger

	// Repositories
	OwnerRepo   repository.OwnerRepository
	ClientRepo  repository.ClientRepository
	InvoiceRepo repository.InvoiceRepository

	// Services
	OwnerService    service.OwnerService
	ClientService   service.ClientService
	InvoiceService  service.InvoiceService
	DocumentService service.DocumentService
	ReportService   service.ReportService
}

// New creates a new App instance, initializing all dependencies
// It handles:
// 1. Loading config (configPath, or the default path when empty)
// 2. Getting encryption key from the environment or keyring
// 3. Opening database
// 4. Running migrations
// 5. Creating repositories and services
func New(ctx context.Context, configPath string) (*App, error) {
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a, err := NewWithConfig(ctx, cfg, crypto.NewKeyring())
	if err != nil {
		return nil, err
	}
	a.ConfigPath = configPath
	return a, nil
}

// NewWithConfig creates an App with a provided config and key source (useful for testing)
func NewWithConfig(ctx context.Context, cfg *config.Config, keyring crypto.Keyring) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	password, err := keyring.GetKey()
	if err != nil {
		// No key exists, prompt user to set one
		fmt.Println("Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
		log.Info("database key stored", "service", crypto.ServiceName)
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Debug("database ready", "path", cfg.Database.Path)

	opts, err := invoiceOptions(cfg.Invoice)
	if err != nil {
		database.Close()
		return nil, err
	}

	ownerRepo := repository.NewOwnerRepo(database)
	clientRepo := repository.NewClientRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)

	ownerService := service.NewOwnerService(database, ownerRepo, log.With("component", "owners"))
	clientService := service.NewClientService(database, clientRepo, log.With("component", "clients"))
	invoiceService := service.NewInvoiceService(database, invoiceRepo, clientRepo, opts, log.With("component", "invoices"))
	documentService := service.NewDocumentService(
		invoiceService,
		ownerRepo,
		mail.NewSMTPSender(cfg.Mail, log.With("component", "mail")),
		cfg.Invoice.OutputDir,
		cfg.Invoice.Currency,
		log.With("component", "documents"),
	)

	return &App{
		Config:          cfg,
		ConfigPath:      config.DefaultConfigPath(),
		DB:              database,
		Log:             log,
		OwnerRepo:       ownerRepo,
		ClientRepo:      clientRepo,
		InvoiceRepo:     invoiceRepo,
		OwnerService:    ownerService,
		ClientService:   clientService,
		InvoiceService:  invoiceService,
		DocumentService: documentService,
		ReportService:   service.NewReportService(invoiceService),
	}, nil
}

func invoiceOptions(cfg config.InvoiceConfig) (service.InvoiceOptions, error) {
	opts := service.InvoiceOptions{
		Prefixes:            cfg.Prefixes(),
		MaxReferenceRetries: cfg.MaxReferenceRetries,
	}
	pct, ok, err := cfg.TaxPercentage()
	if err != nil {
		return opts, fmt.Errorf("invalid default tax percentage: %w", err)
	}
	if ok {
		opts.DefaultTaxPercentage = decimal.NewNullDecimal(pct)
	}
	return opts, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.Log != nil {
		a.Log.Sync()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// promptForPassword prompts user for a new database password (first run)
// This should be called when no key is stored
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your invoices will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Printf("Set %s to supply it without a keyring.\n", crypto.EnvKey)
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(a.ConfigPath)
}

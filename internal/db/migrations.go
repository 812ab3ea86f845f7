package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Invoice owners (the businesses issuing invoices)
CREATE TABLE owners (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    phone_2 TEXT NOT NULL DEFAULT '',
    ntn_number TEXT NOT NULL DEFAULT '',
    bank TEXT NOT NULL DEFAULT '',
    account_title TEXT NOT NULL DEFAULT '',
    iban TEXT NOT NULL DEFAULT '',
    logo_path TEXT NOT NULL DEFAULT '',
    signature_path TEXT NOT NULL DEFAULT '',
    is_onboarded INTEGER NOT NULL DEFAULT 0,
    is_staff INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Clients, scoped to an owner
CREATE TABLE clients (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    ntn_number TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    is_archived INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (owner_id, name)
);

-- Invoices and quotations. Decimals are stored as TEXT to keep them exact.
CREATE TABLE invoices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL REFERENCES owners(id) ON DELETE CASCADE,
    client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    reference_number TEXT NOT NULL,
    reference_seq INTEGER NOT NULL DEFAULT 0,
    tax_percentage TEXT,
    total_price TEXT NOT NULL DEFAULT '0',
    tax TEXT NOT NULL DEFAULT '0',
    grand_total TEXT NOT NULL DEFAULT '0',
    date TEXT,
    notes TEXT NOT NULL DEFAULT '',
    is_taxed INTEGER NOT NULL DEFAULT 0,
    is_quotation INTEGER NOT NULL DEFAULT 0,
    is_paid INTEGER NOT NULL DEFAULT 0,
    transit_charges TEXT NOT NULL DEFAULT '0',
    version INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE (is_quotation, reference_number)
);

-- Invoice line items
CREATE TABLE invoice_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_id INTEGER NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    unit TEXT NOT NULL,
    quantity TEXT NOT NULL,
    unit_price TEXT NOT NULL,
    total_price TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Indexes
CREATE INDEX idx_clients_owner ON clients(owner_id);
CREATE INDEX idx_invoices_owner ON invoices(owner_id);
CREATE INDEX idx_invoices_client ON invoices(client_id);
CREATE INDEX idx_invoices_series ON invoices(is_quotation, reference_seq);
CREATE INDEX idx_items_invoice ON invoice_items(invoice_id);
`,
	},
	{
		version: 2,
		sql: `
-- Highest reference ever issued per series. It only moves forward, so a number
-- released by an invoice changing series is never issued again.
CREATE TABLE reference_sequences (
    is_quotation INTEGER PRIMARY KEY,
    last_reference TEXT NOT NULL,
    last_seq INTEGER NOT NULL
);

INSERT INTO reference_sequences (is_quotation, last_reference, last_seq)
SELECT is_quotation, reference_number, MAX(reference_seq)
FROM invoices
WHERE reference_number <> ''
GROUP BY is_quotation;
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	// Ensure schema_version table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply pending migrations in a transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		// Execute migration SQL
		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		// Record migration
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}

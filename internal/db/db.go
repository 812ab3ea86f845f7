package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// ErrWrongKey is returned by Open when the key does not decrypt the file
var ErrWrongKey = errors.New("database key is wrong or the file is not a database")

// DB is the encrypted invoice store. All access goes through a single
// connection so a transaction bound to a context sees every write.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the SQLCipher database at dbPath, keyed
// with password.
func Open(dbPath, password string) (*DB, error) {
	if password == "" {
		return nil, fmt.Errorf("database key must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// The key and foreign keys are applied to every new connection; escape the
	// key since it may contain '&'
	dsn := fmt.Sprintf("%s?_pragma_key=%s&_foreign_keys=1&_busy_timeout=5000", dbPath, url.QueryEscape(password))

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// WAL is stored in the file, so setting it once covers later connections
	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqlDB.Close()
		if isNotADatabase(err) {
			return nil, ErrWrongKey
		}
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Reading the schema is the first access that needs the key
	var n int
	if err := sqlDB.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		sqlDB.Close()
		if isNotADatabase(err) {
			return nil, ErrWrongKey
		}
		return nil, fmt.Errorf("failed to read database: %w", err)
	}

	return &DB{DB: sqlDB, path: dbPath}, nil
}

func isNotADatabase(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrNotADB
	}
	return strings.Contains(err.Error(), "file is not a database")
}

// Path is the database file location
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

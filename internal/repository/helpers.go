package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/andy/invoicer/internal/domain"
)

// timeLayout is the RFC3339 format for storing times in SQLite
const timeLayout = time.RFC3339

// dateLayout is used for calendar dates such as the invoice date
const dateLayout = "2006-01-02"

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatTime returns the current time formatted as RFC3339
func formatTime() string {
	return time.Now().Format(timeLayout)
}

// nullDate converts an optional date into a column value
func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// parseNullDate parses an optional date column
func parseNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s.String, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTimestamps parses the created_at/updated_at pair common to most tables
func scanTimestamps(createdAt, updatedAt string, created, updated *time.Time) error {
	var err error
	if *created, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	if *updated, err = parseTime(updatedAt); err != nil {
		return fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// expectOne checks that an UPDATE or DELETE touched a row
func expectOne(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return nil
}

// Package database provides database access for the collection service
package database

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
	dialect string
}

// New creates a new database connection
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, dialect: driver}, nil
}

func (db *DB) goose() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(db.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate applies all pending migrations
func (db *DB) Migrate() error {
	if err := db.goose(); err != nil {
		return err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (db *DB) Version() (int64, error) {
	if err := db.goose(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersion(db.DB)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Reset rolls back every migration (for testing)
func (db *DB) Reset() error {
	if err := db.goose(); err != nil {
		return err
	}
	if err := goose.Reset(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return nil
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData() error {
	_, err := db.Exec(`
		TRUNCATE TABLE audit_events, callbacks, refunds, payment_requests,
		               persistent_accounts, system_state, disabled_operations CASCADE;
	`)
	return err
}

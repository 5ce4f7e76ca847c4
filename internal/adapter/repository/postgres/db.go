package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=wealth sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// EnsureSchema creates the tables the repositories depend on when they do
// not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id    UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			asset_id       UUID PRIMARY KEY,
			account_id     UUID NOT NULL UNIQUE,
			user_id        UUID NOT NULL REFERENCES users (id),
			name           TEXT NOT NULL DEFAULT '',
			is_active      BOOLEAN NOT NULL DEFAULT TRUE,
			currency       TEXT NOT NULL,
			external_id    TEXT NOT NULL DEFAULT '',
			account_number TEXT NOT NULL DEFAULT '',
			bank           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS stock_positions (
			asset_id    UUID PRIMARY KEY,
			position_id UUID NOT NULL UNIQUE,
			user_id     UUID NOT NULL REFERENCES users (id),
			ticker      TEXT NOT NULL,
			amount      DECIMAL NOT NULL,
			currency    TEXT NOT NULL,
			start_date  DATE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS custom_assets (
			asset_id    UUID PRIMARY KEY,
			user_id     UUID NOT NULL REFERENCES users (id),
			currency    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS asset_events (
			asset_id UUID NOT NULL REFERENCES custom_assets (asset_id),
			date     DATE NOT NULL,
			amount   DECIMAL NOT NULL,
			PRIMARY KEY (asset_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS asset_balances (
			asset_id       UUID NOT NULL,
			date           DATE NOT NULL,
			amount         DECIMAL NOT NULL,
			amount_in_euro DECIMAL NOT NULL,
			currency       TEXT NOT NULL,
			PRIMARY KEY (asset_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS exchange_rates (
			currency TEXT NOT NULL,
			date     DATE NOT NULL,
			rate     DECIMAL NOT NULL,
			PRIMARY KEY (currency, date)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_tickers (
			symbol   TEXT PRIMARY KEY,
			currency TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stock_ticker_prices (
			symbol TEXT NOT NULL REFERENCES stock_tickers (symbol),
			date   DATE NOT NULL,
			price  DECIMAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

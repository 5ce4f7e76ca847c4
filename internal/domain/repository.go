package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ExchangeRateRepository defines the interface for exchange rate persistence operations
type ExchangeRateRepository interface {
	// ListAll retrieves the full historical rate set for every currency
	ListAll(ctx context.Context) ([]ExchangeRate, error)

	// ReplaceAll replaces the stored rate history wholesale
	ReplaceAll(ctx context.Context, rates []ExchangeRate) error
}

// TickerRepository defines the interface for stock ticker persistence operations
type TickerRepository interface {
	// GetBySymbol retrieves a ticker with its full price history
	// Returns ErrNotFound when the symbol is unknown
	GetBySymbol(ctx context.Context, symbol string) (*StockTicker, error)

	// Save creates or fully replaces a ticker and its price history
	Save(ctx context.Context, ticker *StockTicker) error

	// ListSymbols returns every known ticker symbol
	ListSymbols(ctx context.Context) ([]string, error)
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	// GetByID retrieves a user with all assets and events loaded
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// List retrieves every user with all assets and events loaded
	List(ctx context.Context) ([]*User, error)

	// SaveCustomAsset creates or updates a custom asset and replaces its events
	SaveCustomAsset(ctx context.Context, userID uuid.UUID, asset *CustomAsset) error

	// SaveStockPosition creates or updates a stock position
	SaveStockPosition(ctx context.Context, userID uuid.UUID, position *StockPosition) error
}

// BalanceRepository defines the interface for computed daily value persistence
type BalanceRepository interface {
	// Replace swaps out the stored balance history of one asset wholesale
	// Balance lists are never patched incrementally
	Replace(ctx context.Context, assetID uuid.UUID, balances []DailyValue) error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// tickerRepository implements domain.TickerRepository
type tickerRepository struct {
	db *DB
}

// NewTickerRepository creates a new stock ticker repository
func NewTickerRepository(db *DB) domain.TickerRepository {
	return &tickerRepository{db: db}
}

// GetBySymbol retrieves a ticker with its full price history
func (r *tickerRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.StockTicker, error) {
	var currency string
	err := r.db.QueryRowContext(ctx, `
		SELECT currency FROM stock_tickers WHERE symbol = $1
	`, symbol).Scan(&currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s: %w", symbol, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticker %s: %w", symbol, err)
	}

	ticker := &domain.StockTicker{
		Symbol:   symbol,
		Currency: domain.Currency(currency),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT date, price
		FROM stock_ticker_prices
		WHERE symbol = $1
		ORDER BY date
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawDate  time.Time
			priceStr string
		)
		if err := rows.Scan(&rawDate, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}
		ticker.Prices = append(ticker.Prices, domain.StockTickerItem{
			Date:  domain.DateOf(rawDate),
			Price: price,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price rows: %w", err)
	}

	return ticker, nil
}

// Save creates or fully replaces a ticker and its price history
func (r *tickerRepository) Save(ctx context.Context, ticker *domain.StockTicker) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stock_tickers (symbol, currency)
		VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET currency = EXCLUDED.currency
	`, ticker.Symbol, string(ticker.Currency)); err != nil {
		return fmt.Errorf("failed to upsert ticker %s: %w", ticker.Symbol, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM stock_ticker_prices WHERE symbol = $1
	`, ticker.Symbol); err != nil {
		return fmt.Errorf("failed to clear prices for %s: %w", ticker.Symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_ticker_prices (symbol, date, price)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range ticker.Prices {
		if _, err := stmt.ExecContext(ctx, ticker.Symbol, item.Date.Time(), item.Price.String()); err != nil {
			return fmt.Errorf("failed to insert price %s %s: %w", ticker.Symbol, item.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ticker %s: %w", ticker.Symbol, err)
	}
	return nil
}

// ListSymbols returns every known ticker symbol
func (r *tickerRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol FROM stock_tickers ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symbols: %w", err)
	}
	return symbols, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// exchangeRateRepository implements domain.ExchangeRateRepository
type exchangeRateRepository struct {
	db *DB
}

// NewExchangeRateRepository creates a new exchange rate repository
func NewExchangeRateRepository(db *DB) domain.ExchangeRateRepository {
	return &exchangeRateRepository{db: db}
}

// ListAll retrieves the full historical rate set for every currency
func (r *exchangeRateRepository) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	query := `
		SELECT currency, date, rate
		FROM exchange_rates
		ORDER BY currency, date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer rows.Close()

	var (
		result  []domain.ExchangeRate
		current *domain.ExchangeRate
	)
	for rows.Next() {
		var (
			currency string
			rawDate  time.Time
			rateStr  string
		)
		if err := rows.Scan(&currency, &rawDate, &rateStr); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate row: %w", err)
		}

		date := domain.DateOf(rawDate)
		rate, err := decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate: %w", err)
		}

		// Rows arrive grouped by currency; start a new group on change
		if current == nil || current.Currency != domain.Currency(currency) {
			result = append(result, domain.ExchangeRate{Currency: domain.Currency(currency)})
			current = &result[len(result)-1]
		}
		current.Rates = append(current.Rates, domain.ExchangeRateItem{Date: date, Rate: rate})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exchange rate rows: %w", err)
	}

	return result, nil
}

// ReplaceAll replaces the stored rate history wholesale
func (r *exchangeRateRepository) ReplaceAll(ctx context.Context, rates []domain.ExchangeRate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exchange_rates`); err != nil {
		return fmt.Errorf("failed to clear exchange rates: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exchange_rates (currency, date, rate)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rates {
		for _, item := range row.Rates {
			if _, err := stmt.ExecContext(ctx, string(row.Currency), item.Date.Time(), item.Rate.String()); err != nil {
				return fmt.Errorf("failed to insert rate %s %s: %w", row.Currency, item.Date, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exchange rates: %w", err)
	}
	return nil
}

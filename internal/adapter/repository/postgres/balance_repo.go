package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// balanceRepository implements domain.BalanceRepository
type balanceRepository struct {
	db *DB
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *DB) domain.BalanceRepository {
	return &balanceRepository{db: db}
}

// Replace swaps out the stored balance history of one asset wholesale
// The delete and the inserts run in one transaction so readers never see a
// partially replaced history
func (r *balanceRepository) Replace(ctx context.Context, assetID uuid.UUID, balances []domain.DailyValue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM asset_balances WHERE asset_id = $1
	`, assetID); err != nil {
		return fmt.Errorf("failed to clear balances for asset %s: %w", assetID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO asset_balances (asset_id, date, amount, amount_in_euro, currency)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare balance insert: %w", err)
	}
	defer stmt.Close()

	for _, value := range balances {
		if _, err := stmt.ExecContext(ctx,
			assetID,
			value.Date.Time(),
			value.Amount.String(),
			value.AmountInEuro.String(),
			string(value.Currency),
		); err != nil {
			return fmt.Errorf("failed to insert balance %s %s: %w", assetID, value.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit balances for asset %s: %w", assetID, err)
	}
	return nil
}

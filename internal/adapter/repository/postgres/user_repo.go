package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// userRepository implements domain.UserRepository
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) domain.UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user with all assets and events loaded
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	if err := r.loadAssets(ctx, map[uuid.UUID]*domain.User{user.ID: user}); err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves every user with all assets and events loaded
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	byID := make(map[uuid.UUID]*domain.User)
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(&user.ID, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
		byID[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	if err := r.loadAssets(ctx, byID); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveCustomAsset creates or updates a custom asset and replaces its events
func (r *userRepository) SaveCustomAsset(ctx context.Context, userID uuid.UUID, asset *domain.CustomAsset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO custom_assets (asset_id, user_id, currency, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset_id) DO UPDATE SET currency = EXCLUDED.currency, description = EXCLUDED.description
	`, asset.AssetID, userID, string(asset.Currency), asset.Description); err != nil {
		return fmt.Errorf("failed to upsert custom asset %s: %w", asset.AssetID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM asset_events WHERE asset_id = $1
	`, asset.AssetID); err != nil {
		return fmt.Errorf("failed to clear events for asset %s: %w", asset.AssetID, err)
	}

	for _, event := range asset.Events {
		// The (asset_id, date) primary key backs the one-event-per-day
		// invariant at the storage level as well
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO asset_events (asset_id, date, amount)
			VALUES ($1, $2, $3)
			ON CONFLICT (asset_id, date) DO UPDATE SET amount = EXCLUDED.amount
		`, asset.AssetID, event.Date.Time(), event.Amount.String()); err != nil {
			return fmt.Errorf("failed to insert event %s %s: %w", asset.AssetID, event.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit custom asset %s: %w", asset.AssetID, err)
	}
	return nil
}

// SaveStockPosition creates or updates a stock position
func (r *userRepository) SaveStockPosition(ctx context.Context, userID uuid.UUID, position *domain.StockPosition) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_positions (asset_id, position_id, user_id, ticker, amount, currency, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (asset_id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			start_date = EXCLUDED.start_date
	`, position.AssetID, position.PositionID, userID, position.Ticker,
		position.Amount.String(), string(position.Currency), position.StartDate.Time()); err != nil {
		return fmt.Errorf("failed to upsert stock position %s: %w", position.PositionID, err)
	}
	return nil
}

// loadAssets populates the assets, events and balance histories of the given users
func (r *userRepository) loadAssets(ctx context.Context, byID map[uuid.UUID]*domain.User) error {
	if len(byID) == 0 {
		return nil
	}

	userIDs := make([]string, 0, len(byID))
	for id := range byID {
		userIDs = append(userIDs, id.String())
	}

	assets := make(map[uuid.UUID]*[]domain.DailyValue)

	customAssets, err := r.loadCustomAssets(ctx, userIDs, byID, assets)
	if err != nil {
		return err
	}
	if err := r.loadEvents(ctx, customAssets); err != nil {
		return err
	}
	if err := r.loadStockPositions(ctx, userIDs, byID, assets); err != nil {
		return err
	}
	if err := r.loadAccounts(ctx, userIDs, byID, assets); err != nil {
		return err
	}
	return r.loadBalances(ctx, assets)
}

func (r *userRepository) loadCustomAssets(
	ctx context.Context,
	userIDs []string,
	byID map[uuid.UUID]*domain.User,
	assets map[uuid.UUID]*[]domain.DailyValue,
) (map[uuid.UUID]*domain.CustomAsset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, user_id, currency, description
		FROM custom_assets
		WHERE user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query custom assets: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*domain.CustomAsset)
	for rows.Next() {
		var (
			asset    domain.CustomAsset
			userID   uuid.UUID
			currency string
		)
		if err := rows.Scan(&asset.AssetID, &userID, &currency, &asset.Description); err != nil {
			return nil, fmt.Errorf("failed to scan custom asset: %w", err)
		}
		asset.Currency = domain.Currency(currency)

		user := byID[userID]
		user.CustomAssets = append(user.CustomAssets, &asset)
		result[asset.AssetID] = &asset
		assets[asset.AssetID] = &asset.Balances
	}
	return result, rows.Err()
}

func (r *userRepository) loadEvents(ctx context.Context, customAssets map[uuid.UUID]*domain.CustomAsset) error {
	if len(customAssets) == 0 {
		return nil
	}
	assetIDs := make([]string, 0, len(customAssets))
	for id := range customAssets {
		assetIDs = append(assetIDs, id.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, date, amount
		FROM asset_events
		WHERE asset_id = ANY($1)
		ORDER BY date
	`, pq.Array(assetIDs))
	if err != nil {
		return fmt.Errorf("failed to query asset events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			assetID   uuid.UUID
			rawDate   time.Time
			amountStr string
		)
		if err := rows.Scan(&assetID, &rawDate, &amountStr); err != nil {
			return fmt.Errorf("failed to scan asset event: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse event amount: %w", err)
		}
		asset := customAssets[assetID]
		asset.Events = append(asset.Events, domain.AssetEvent{
			Date:   domain.DateOf(rawDate),
			Amount: amount,
		})
	}
	return rows.Err()
}

func (r *userRepository) loadStockPositions(
	ctx context.Context,
	userIDs []string,
	byID map[uuid.UUID]*domain.User,
	assets map[uuid.UUID]*[]domain.DailyValue,
) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, position_id, user_id, ticker, amount, currency, start_date
		FROM stock_positions
		WHERE user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("failed to query stock positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			position  domain.StockPosition
			userID    uuid.UUID
			amountStr string
			currency  string
			rawStart  time.Time
		)
		if err := rows.Scan(&position.AssetID, &position.PositionID, &userID,
			&position.Ticker, &amountStr, &currency, &rawStart); err != nil {
			return fmt.Errorf("failed to scan stock position: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse position amount: %w", err)
		}
		position.Amount = amount
		position.Currency = domain.Currency(currency)
		position.StartDate = domain.DateOf(rawStart)

		user := byID[userID]
		user.StockPositions = append(user.StockPositions, &position)
		assets[position.AssetID] = &position.Balances
	}
	return rows.Err()
}

func (r *userRepository) loadAccounts(
	ctx context.Context,
	userIDs []string,
	byID map[uuid.UUID]*domain.User,
	assets map[uuid.UUID]*[]domain.DailyValue,
) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, account_id, user_id, name, is_active, currency, external_id, account_number, bank
		FROM accounts
		WHERE user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			account  domain.Account
			userID   uuid.UUID
			currency string
		)
		if err := rows.Scan(&account.AssetID, &account.AccountID, &userID, &account.Name,
			&account.IsActive, &currency, &account.ExternalID, &account.AccountNumber, &account.Bank); err != nil {
			return fmt.Errorf("failed to scan account: %w", err)
		}
		account.Currency = domain.Currency(currency)

		user := byID[userID]
		user.Accounts = append(user.Accounts, &account)
		assets[account.AssetID] = &account.Balances
	}
	return rows.Err()
}

// loadBalances fills the stored daily value history of every collected asset
func (r *userRepository) loadBalances(ctx context.Context, assets map[uuid.UUID]*[]domain.DailyValue) error {
	if len(assets) == 0 {
		return nil
	}
	assetIDs := make([]string, 0, len(assets))
	for id := range assets {
		assetIDs = append(assetIDs, id.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, date, amount, amount_in_euro, currency
		FROM asset_balances
		WHERE asset_id = ANY($1)
		ORDER BY asset_id, date
	`, pq.Array(assetIDs))
	if err != nil {
		return fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			assetID    uuid.UUID
			rawDate    time.Time
			amountStr  string
			inEuroStr  string
			currency   string
		)
		if err := rows.Scan(&assetID, &rawDate, &amountStr, &inEuroStr, &currency); err != nil {
			return fmt.Errorf("failed to scan balance: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse balance amount: %w", err)
		}
		inEuro, err := decimal.NewFromString(inEuroStr)
		if err != nil {
			return fmt.Errorf("failed to parse balance euro amount: %w", err)
		}

		balances := assets[assetID]
		*balances = append(*balances, domain.DailyValue{
			Date:         domain.DateOf(rawDate),
			Amount:       amount,
			AmountInEuro: inEuro,
			Currency:     domain.Currency(currency),
		})
	}
	return rows.Err()
}

package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyValue is one computed, gap-filled, currency-converted balance record
// Exactly one exists per calendar day between an asset's first observation
// and the day the balances were last recomputed
type DailyValue struct {
	Date         Date
	Amount       decimal.Decimal // in the asset's native currency
	AmountInEuro decimal.Decimal
	Currency     Currency
}

// AssetEvent is a user-entered value reading for a custom asset
// At most one event exists per calendar day per asset
type AssetEvent struct {
	Date   Date
	Amount decimal.Decimal
}

// AssetKind tags the concrete variant of an asset
type AssetKind string

const (
	AssetKindAccount       AssetKind = "account"
	AssetKindStockPosition AssetKind = "stock_position"
	AssetKindCustomAsset   AssetKind = "custom_asset"
)

// Asset is the common view over every asset variant
// Implementations are selected by Kind and type switch rather than
// dynamic attribute probing
type Asset interface {
	Kind() AssetKind
	ID() uuid.UUID
	History() []DailyValue
}

// CurrentValue returns the most recent daily value of an asset in its
// native currency, or zero when no balances have been computed yet
func CurrentValue(a Asset) decimal.Decimal {
	history := a.History()
	if len(history) == 0 {
		return decimal.Zero
	}
	return history[len(history)-1].Amount
}

// CurrentValueInEuro returns the most recent daily value of an asset in euro
func CurrentValueInEuro(a Asset) decimal.Decimal {
	history := a.History()
	if len(history) == 0 {
		return decimal.Zero
	}
	return history[len(history)-1].AmountInEuro
}

// Account is a bank account synced from an external banking aggregator
// Its balances are produced by the (external) banking integration; it
// participates in aggregation like any other asset
type Account struct {
	AssetID   uuid.UUID
	AccountID uuid.UUID

	Name          string
	IsActive      bool
	Currency      Currency
	ExternalID    string
	AccountNumber string
	Bank          string

	Balances []DailyValue
}

// Kind implements Asset
func (a *Account) Kind() AssetKind { return AssetKindAccount }

// ID implements Asset
func (a *Account) ID() uuid.UUID { return a.AssetID }

// History implements Asset
func (a *Account) History() []DailyValue { return a.Balances }

// StockPosition is a holding of a fixed amount of one stock ticker,
// valued from the ticker's daily price history from StartDate onward
type StockPosition struct {
	AssetID    uuid.UUID
	PositionID uuid.UUID

	Ticker    string
	Amount    decimal.Decimal
	Currency  Currency
	StartDate Date

	Balances []DailyValue
}

// Kind implements Asset
func (p *StockPosition) Kind() AssetKind { return AssetKindStockPosition }

// ID implements Asset
func (p *StockPosition) ID() uuid.UUID { return p.AssetID }

// History implements Asset
func (p *StockPosition) History() []DailyValue { return p.Balances }

// CustomAsset is a manually tracked asset valued from user-entered events
type CustomAsset struct {
	AssetID uuid.UUID

	Currency    Currency
	Description string

	Events   []AssetEvent
	Balances []DailyValue
}

// Kind implements Asset
func (c *CustomAsset) Kind() AssetKind { return AssetKindCustomAsset }

// ID implements Asset
func (c *CustomAsset) ID() uuid.UUID { return c.AssetID }

// History implements Asset
func (c *CustomAsset) History() []DailyValue { return c.Balances }

// FindEvent returns the event on the given date, or nil when none exists
// More than one event on a single day violates the per-day uniqueness
// invariant and is reported as an error
func (c *CustomAsset) FindEvent(on Date) (*AssetEvent, error) {
	var found *AssetEvent
	for i := range c.Events {
		if c.Events[i].Date == on {
			if found != nil {
				return nil, fmt.Errorf("asset %s has more than one event on %s", c.AssetID, on)
			}
			found = &c.Events[i]
		}
	}
	return found, nil
}

// UpsertEvent adds an event for a date, or updates the amount when an event
// for that date already exists. Future dates are rejected; today is passed
// in by the caller so the check is deterministic in tests
func (c *CustomAsset) UpsertEvent(event AssetEvent, today Date) error {
	if event.Date.After(today) {
		return errors.New("asset event date must not be in the future")
	}
	existing, err := c.FindEvent(event.Date)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Amount = event.Amount
		return nil
	}
	c.Events = append(c.Events, event)
	return nil
}

// RemoveEvent deletes the event on the given date, reporting whether one existed
func (c *CustomAsset) RemoveEvent(on Date) bool {
	for i := range c.Events {
		if c.Events[i].Date == on {
			c.Events = append(c.Events[:i], c.Events[i+1:]...)
			return true
		}
	}
	return false
}

// User owns the full set of assets whose balances are aggregated
type User struct {
	ID    uuid.UUID
	Email string

	Accounts       []*Account
	StockPositions []*StockPosition
	CustomAssets   []*CustomAsset
}

// Assets flattens all of the user's assets into the common Asset view
// Inactive accounts are excluded from aggregation
func (u *User) Assets() []Asset {
	assets := make([]Asset, 0, len(u.StockPositions)+len(u.CustomAssets)+len(u.Accounts))
	for _, p := range u.StockPositions {
		assets = append(assets, p)
	}
	for _, c := range u.CustomAssets {
		assets = append(assets, c)
	}
	for _, a := range u.Accounts {
		if a.IsActive {
			assets = append(assets, a)
		}
	}
	return assets
}

// Balances concatenates the daily value histories of all the user's assets
func (u *User) Balances() []DailyValue {
	var balances []DailyValue
	for _, asset := range u.Assets() {
		balances = append(balances, asset.History()...)
	}
	return balances
}

// FindCustomAsset returns the custom asset with the given ID, or nil
func (u *User) FindCustomAsset(assetID uuid.UUID) *CustomAsset {
	for _, c := range u.CustomAssets {
		if c.AssetID == assetID {
			return c
		}
	}
	return nil
}

// FindStockPosition returns the stock position with the given position ID, or nil
func (u *User) FindStockPosition(positionID uuid.UUID) *StockPosition {
	for _, p := range u.StockPositions {
		if p.PositionID == positionID {
			return p
		}
	}
	return nil
}

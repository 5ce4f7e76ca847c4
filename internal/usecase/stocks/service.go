package stocks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
	"github.com/wealthapp/wealth-backend/internal/usecase/balance"
)

// maxConcurrentUsers bounds the worker count of the batch recompute jobs
const maxConcurrentUsers = 4

// SearchResult is one match returned by a ticker symbol search
type SearchResult struct {
	Symbol   string
	Name     string
	Region   string
	Currency domain.Currency
}

// MarketData provides stock price history and symbol metadata
type MarketData interface {
	// TickerHistory returns the full daily price history for a symbol
	TickerHistory(ctx context.Context, symbol string) ([]domain.StockTickerItem, error)

	// SearchTicker returns the best matches for a symbol or name fragment
	SearchTicker(ctx context.Context, keywords string) ([]SearchResult, error)
}

// Service handles stock position operations: ticker management, balance
// computation and the batch recompute over all users
type Service struct {
	Tickers  domain.TickerRepository
	Users    domain.UserRepository
	Balances domain.BalanceRepository
	Market   MarketData

	Interpolator *balance.Interpolator

	now func() domain.Date
}

// NewService creates a new stocks Service instance
func NewService(
	tickers domain.TickerRepository,
	users domain.UserRepository,
	balances domain.BalanceRepository,
	market MarketData,
	interpolator *balance.Interpolator,
) *Service {
	return &Service{
		Tickers:      tickers,
		Users:        users,
		Balances:     balances,
		Market:       market,
		Interpolator: interpolator,
		now:          domain.Today,
	}
}

// GetOrCreateTicker returns the stored ticker for a symbol, fetching its
// price history and resolving its quote currency when the symbol is new
// The currency is resolved exactly once, at creation; every balance derived
// from the ticker afterwards uses it uniformly
func (s *Service) GetOrCreateTicker(ctx context.Context, symbol string) (*domain.StockTicker, error) {
	ticker, err := s.Tickers.GetBySymbol(ctx, symbol)
	if err == nil {
		return ticker, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up ticker %s: %w", symbol, err)
	}

	prices, err := s.Market.TickerHistory(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}

	currency, err := s.resolveCurrency(ctx, symbol)
	if err != nil {
		return nil, err
	}

	ticker = &domain.StockTicker{
		Symbol:   symbol,
		Currency: currency,
		Prices:   prices,
	}
	if err := s.Tickers.Save(ctx, ticker); err != nil {
		return nil, fmt.Errorf("failed to save ticker %s: %w", symbol, err)
	}
	return ticker, nil
}

// resolveCurrency finds the quote currency of a symbol via a search step
func (s *Service) resolveCurrency(ctx context.Context, symbol string) (domain.Currency, error) {
	matches, err := s.Market.SearchTicker(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("failed to search ticker %s: %w", symbol, err)
	}
	for _, match := range matches {
		if match.Symbol == symbol {
			return match.Currency, nil
		}
	}
	return "", fmt.Errorf("no search match found for ticker %s", symbol)
}

// Search returns the best ticker matches for a symbol or name fragment
func (s *Service) Search(ctx context.Context, keywords string) ([]SearchResult, error) {
	return s.Market.SearchTicker(ctx, keywords)
}

// CreatePosition opens a stock position for a user and computes its initial
// balance history. The position's currency is the ticker's quote currency
func (s *Service) CreatePosition(ctx context.Context, userID uuid.UUID, symbol string, amount decimal.Decimal, startDate domain.Date) (*domain.StockPosition, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("position amount must be positive")
	}
	if startDate.After(s.now()) {
		return nil, errors.New("position start date must not be in the future")
	}

	ticker, err := s.GetOrCreateTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}

	position := &domain.StockPosition{
		AssetID:    uuid.New(),
		PositionID: uuid.New(),
		Ticker:     symbol,
		Amount:     amount,
		Currency:   ticker.Currency,
		StartDate:  startDate,
	}

	balances, err := s.PopulateBalances(ctx, position)
	if err != nil {
		return nil, err
	}
	position.Balances = balances

	if err := s.Users.SaveStockPosition(ctx, userID, position); err != nil {
		return nil, fmt.Errorf("failed to save stock position: %w", err)
	}
	if err := s.Balances.Replace(ctx, position.AssetID, balances); err != nil {
		return nil, fmt.Errorf("failed to store position balances: %w", err)
	}
	return position, nil
}

// PopulateBalances computes the full daily value series of a stock position
// Only days with an exact price yield an observation (held amount × price);
// the interpolator's carry-forward covers the gap days in between, matching
// the custom asset behavior
func (s *Service) PopulateBalances(ctx context.Context, position *domain.StockPosition) ([]domain.DailyValue, error) {
	ticker, err := s.GetOrCreateTicker(ctx, position.Ticker)
	if err != nil {
		return nil, err
	}

	prices := ticker.PricesByDate()
	today := s.now()

	var observations []balance.Observation
	for day := position.StartDate; !day.After(today); day = day.Add(1) {
		price, ok := prices[day]
		if !ok {
			continue
		}
		observations = append(observations, balance.Observation{
			Date:   day,
			Amount: position.Amount.Mul(price),
		})
	}

	return s.Interpolator.Interpolate(ctx, observations, ticker.Currency)
}

// UpdateAllTickers refreshes the stored price history of every known ticker
// A failing symbol is logged and skipped so the rest still update
func (s *Service) UpdateAllTickers(ctx context.Context) error {
	symbols, err := s.Tickers.ListSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list ticker symbols: %w", err)
	}

	var errs []error
	for _, symbol := range symbols {
		ticker, err := s.Tickers.GetBySymbol(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticker %s: %w", symbol, err))
			continue
		}
		prices, err := s.Market.TickerHistory(ctx, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticker %s: %w", symbol, err))
			continue
		}
		ticker.Prices = prices
		if err := s.Tickers.Save(ctx, ticker); err != nil {
			errs = append(errs, fmt.Errorf("ticker %s: %w", symbol, err))
		}
	}
	return errors.Join(errs...)
}

// RecomputeAllBalances rebuilds the stored balance history of every user's
// stock positions. Users are processed concurrently with a bounded worker
// count; one user's failure never aborts the others
func (s *Service) RecomputeAllBalances(ctx context.Context) error {
	users, err := s.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	log.Printf("[INFO] recomputing stock balances for %d users", len(users))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, maxConcurrentUsers)

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(user *domain.User) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.recomputeUserBalances(ctx, user); err != nil {
				log.Printf("[ERROR] recompute stock balances for user %s: %v", user.ID, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
				mu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	log.Printf("[INFO] done recomputing stock balances (%d failures)", len(errs))
	return errors.Join(errs...)
}

func (s *Service) recomputeUserBalances(ctx context.Context, user *domain.User) error {
	var errs []error
	for _, position := range user.StockPositions {
		balances, err := s.PopulateBalances(ctx, position)
		if err != nil {
			errs = append(errs, fmt.Errorf("position %s: %w", position.PositionID, err))
			continue
		}
		position.Balances = balances
		if err := s.Balances.Replace(ctx, position.AssetID, balances); err != nil {
			errs = append(errs, fmt.Errorf("position %s: %w", position.PositionID, err))
		}
	}
	return errors.Join(errs...)
}

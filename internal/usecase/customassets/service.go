package customassets

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

// maxConcurrentUsers bounds the worker count of the batch recompute job
const maxConcurrentUsers = 4

// Service handles custom asset operations: event mutations and the daily
// value recomputation they trigger
// Every event create, update or delete replaces the asset's stored balance
// history wholesale; nothing is patched incrementally
type Service struct {
	Users    domain.UserRepository
	Balances domain.BalanceRepository

	Interpolator *balance.Interpolator

	now func() domain.Date
}

// NewService creates a new custom assets Service instance
func NewService(users domain.UserRepository, balances domain.BalanceRepository, interpolator *balance.Interpolator) *Service {
	return &Service{
		Users:        users,
		Balances:     balances,
		Interpolator: interpolator,
		now:          domain.Today,
	}
}

// Create adds a custom asset for a user, seeded with one initial event,
// and computes its balance history
func (s *Service) Create(ctx context.Context, userID uuid.UUID, currency domain.Currency, description string, amount decimal.Decimal, on domain.Date) (*domain.CustomAsset, error) {
	asset := &domain.CustomAsset{
		AssetID:     uuid.New(),
		Currency:    currency,
		Description: description,
	}
	if err := asset.UpsertEvent(domain.AssetEvent{Date: on, Amount: amount}, s.now()); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, userID, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// UpsertEvent records a value reading for an asset on a date
// At most one event exists per calendar day: recording a second on the same
// date updates the existing one, which keeps retries idempotent
func (s *Service) UpsertEvent(ctx context.Context, userID, assetID uuid.UUID, event domain.AssetEvent) error {
	asset, err := s.findAsset(ctx, userID, assetID)
	if err != nil {
		return err
	}
	if err := asset.UpsertEvent(event, s.now()); err != nil {
		return err
	}
	return s.recompute(ctx, userID, asset)
}

// RemoveEvent deletes the event on a date and recomputes the balance history
func (s *Service) RemoveEvent(ctx context.Context, userID, assetID uuid.UUID, on domain.Date) error {
	asset, err := s.findAsset(ctx, userID, assetID)
	if err != nil {
		return err
	}
	if !asset.RemoveEvent(on) {
		return fmt.Errorf("asset %s has no event on %s: %w", assetID, on, domain.ErrNotFound)
	}
	return s.recompute(ctx, userID, asset)
}

// PopulateBalances computes the full daily value series of a custom asset
// from its events
func (s *Service) PopulateBalances(ctx context.Context, asset *domain.CustomAsset) ([]domain.DailyValue, error) {
	observations := make([]balance.Observation, 0, len(asset.Events))
	for _, event := range asset.Events {
		observations = append(observations, balance.Observation{
			Date:   event.Date,
			Amount: event.Amount,
		})
	}
	return s.Interpolator.Interpolate(ctx, observations, asset.Currency)
}

// RecomputeAllBalances rebuilds the stored balance history of every user's
// custom assets. Users are processed concurrently with a bounded worker
// count; one user's failure never aborts the others
func (s *Service) RecomputeAllBalances(ctx context.Context) error {
	users, err := s.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	log.Printf("[INFO] recomputing custom asset balances for %d users", len(users))

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
				log.Printf("[ERROR] recompute custom asset balances for user %s: %v", user.ID, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
				mu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	log.Printf("[INFO] done recomputing custom asset balances (%d failures)", len(errs))
	return errors.Join(errs...)
}

func (s *Service) recomputeUserBalances(ctx context.Context, user *domain.User) error {
	var errs []error
	for _, asset := range user.CustomAssets {
		balances, err := s.PopulateBalances(ctx, asset)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset %s: %w", asset.AssetID, err))
			continue
		}
		asset.Balances = balances
		if err := s.Balances.Replace(ctx, asset.AssetID, balances); err != nil {
			errs = append(errs, fmt.Errorf("asset %s: %w", asset.AssetID, err))
		}
	}
	return errors.Join(errs...)
}

// findAsset loads a user and locates one of their custom assets
func (s *Service) findAsset(ctx context.Context, userID, assetID uuid.UUID) (*domain.CustomAsset, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	asset := user.FindCustomAsset(assetID)
	if asset == nil {
		return nil, fmt.Errorf("custom asset %s: %w", assetID, domain.ErrNotFound)
	}
	return asset, nil
}

// recompute rebuilds and stores an asset's balances after a mutation
func (s *Service) recompute(ctx context.Context, userID uuid.UUID, asset *domain.CustomAsset) error {
	balances, err := s.PopulateBalances(ctx, asset)
	if err != nil {
		return err
	}
	asset.Balances = balances

	if err := s.Users.SaveCustomAsset(ctx, userID, asset); err != nil {
		return fmt.Errorf("failed to save custom asset %s: %w", asset.AssetID, err)
	}
	if err := s.Balances.Replace(ctx, asset.AssetID, balances); err != nil {
		return fmt.Errorf("failed to store balances for asset %s: %w", asset.AssetID, err)
	}
	return nil
}

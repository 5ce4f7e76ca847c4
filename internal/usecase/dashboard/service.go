package dashboard

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// NetWorthResult represents a user's calculated net worth in euro
type NetWorthResult struct {
	Total  decimal.Decimal
	ByKind map[domain.AssetKind]decimal.Decimal
}

// Service handles dashboard-related operations over a user's assets
type Service struct {
	Users domain.UserRepository
}

// NewService creates a new dashboard Service instance
func NewService(users domain.UserRepository) *Service {
	return &Service{Users: users}
}

// GetNetWorth calculates a user's total net worth: the sum of the latest
// euro value of every asset, with a per-kind breakdown
// Assets with no balance history contribute zero
func (s *Service) GetNetWorth(ctx context.Context, userID uuid.UUID) (*NetWorthResult, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	return netWorthOf(user), nil
}

func netWorthOf(user *domain.User) *NetWorthResult {
	result := &NetWorthResult{
		Total:  decimal.Zero,
		ByKind: make(map[domain.AssetKind]decimal.Decimal),
	}
	for _, asset := range user.Assets() {
		value := domain.CurrentValueInEuro(asset)
		result.Total = result.Total.Add(value)
		result.ByKind[asset.Kind()] = result.ByKind[asset.Kind()].Add(value)
	}
	return result
}

// LogNetWorthSummaries logs every user's current net worth in euro
// It runs as the closing step of the nightly maintenance sequence, after the
// balance recomputes, so the figures reflect the fresh histories
func (s *Service) LogNetWorthSummaries(ctx context.Context) error {
	users, err := s.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, user := range users {
		result := netWorthOf(user)
		log.Printf("[INFO] user %s net worth: %s EUR across %d assets", user.ID, result.Total, len(user.Assets()))
	}
	return nil
}

// GetWealthHistory returns a user's total wealth per calendar day in euro,
// sorted by date ascending
// Each asset contributes on the days its balance history covers; an asset
// opened later simply joins the sum from its first day
func (s *Service) GetWealthHistory(ctx context.Context, userID uuid.UUID) ([]domain.DailyValue, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	totals := make(map[domain.Date]decimal.Decimal)
	for _, value := range user.Balances() {
		totals[value.Date] = totals[value.Date].Add(value.AmountInEuro)
	}

	series := make([]domain.DailyValue, 0, len(totals))
	for date, total := range totals {
		series = append(series, domain.DailyValue{
			Date:         date,
			Amount:       total,
			AmountInEuro: total,
			Currency:     domain.ReferenceCurrency,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series, nil
}

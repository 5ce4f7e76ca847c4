package exchange

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wealthapp/wealth-backend/internal/domain"
)

// DefaultRefreshInterval is how long a loaded rate table stays fresh
// before the next read triggers a reload from the backing store
const DefaultRefreshInterval = 24 * time.Hour

// RateCache holds the in-memory exchange rate table and refreshes it from
// the backing store when it becomes stale. One cache instance is shared by
// every converter; a refresh builds the replacement table completely before
// swapping it in, so concurrent readers never observe a partial table
type RateCache struct {
	repo            domain.ExchangeRateRepository
	refreshInterval time.Duration
	now             func() time.Time

	mu            sync.RWMutex
	rates         domain.RateTable
	lastRefreshed time.Time
}

// NewRateCache creates a RateCache over the given backing store
// A non-positive refreshInterval falls back to DefaultRefreshInterval
func NewRateCache(repo domain.ExchangeRateRepository, refreshInterval time.Duration) *RateCache {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	return &RateCache{
		repo:            repo,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

// Rates returns the current rate table, reloading it from the backing store
// first when the cached table is stale or empty. When the reload fails and a
// previously loaded table exists, the stale table is returned instead of the
// error; the error is only propagated when there is nothing to fall back to
func (c *RateCache) Rates(ctx context.Context) (domain.RateTable, error) {
	c.mu.RLock()
	if c.fresh() {
		rates := c.rates
		c.mu.RUnlock()
		return rates, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the write lock
	if c.fresh() {
		return c.rates, nil
	}

	rows, err := c.repo.ListAll(ctx)
	if err != nil {
		if len(c.rates) > 0 {
			log.Printf("[WARN] exchange rate refresh failed, serving stale table: %v", err)
			return c.rates, nil
		}
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}

	c.rates = domain.BuildRateTable(rows)
	c.lastRefreshed = c.now()
	return c.rates, nil
}

// fresh reports whether the cached table can be served without a reload
// Callers must hold at least the read lock
func (c *RateCache) fresh() bool {
	if len(c.rates) == 0 || c.lastRefreshed.IsZero() {
		return false
	}
	return c.now().Sub(c.lastRefreshed) < c.refreshInterval
}

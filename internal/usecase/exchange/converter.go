package exchange

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// maxLookbackDays bounds the backward walk for a nearest-past rate when the
// exact date has no entry. Rate gaps come from weekends and holidays, so two
// weeks is enough to bridge any realistic gap
const maxLookbackDays = 14

// UnsupportedCurrencyError is returned when an amount cannot be converted
// because the currency has no usable rate and no configured default
type UnsupportedCurrencyError struct {
	Currency domain.Currency
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("currency %s is not supported: no exchange rate and no default conversion configured", e.Currency)
}

// Converter converts amounts into the reference currency (euro) using the
// historical rates served by the shared RateCache
// Rates are expressed as units of currency per 1 euro, so conversion is a
// division regardless of how the rate was found
type Converter struct {
	Cache *RateCache

	// Defaults maps currencies to the hard-coded conversion rate used as a
	// safety net when no historical rate is available near the requested date
	Defaults map[domain.Currency]decimal.Decimal
}

// NewConverter creates a Converter over the given cache and default rate table
func NewConverter(cache *RateCache, defaults map[domain.Currency]decimal.Decimal) *Converter {
	return &Converter{
		Cache:    cache,
		Defaults: defaults,
	}
}

// ToEuro converts an amount of the given currency on the given calendar date
// into euro
// Lookup order: exact date, then the nearest earlier date within 14 days,
// then the per-currency default rate. A currency with neither a usable rate
// nor a default yields an UnsupportedCurrencyError
func (c *Converter) ToEuro(ctx context.Context, amount decimal.Decimal, currency domain.Currency, on domain.Date) (decimal.Decimal, error) {
	if currency.IsReference() {
		return amount, nil
	}

	table, err := c.Cache.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	rates := table[currency]
	day := on
	for attempts := 0; attempts < maxLookbackDays; attempts++ {
		if rate, ok := rates[day]; ok {
			return amount.Div(rate), nil
		}
		day = day.Add(-1)
	}

	if rate, ok := c.Defaults[currency]; ok {
		log.Printf("[WARN] no %s rate within %d days before %s, using default rate %s (known rates near that date: %s)",
			currency, maxLookbackDays, on, rate, nearbyRates(rates, on))
		return amount.Div(rate), nil
	}

	return decimal.Zero, &UnsupportedCurrencyError{Currency: currency}
}

// nearbyRates renders the rates known within the lookback window around a
// date, for the fallback warning. Intended for operators, not end users
func nearbyRates(rates map[domain.Date]decimal.Decimal, on domain.Date) string {
	var known []string
	for day := on.Add(-maxLookbackDays); !day.After(on.Add(maxLookbackDays)); day = day.Add(1) {
		if rate, ok := rates[day]; ok {
			known = append(known, fmt.Sprintf("%s=%s", day, rate))
		}
	}
	if len(known) == 0 {
		return "none"
	}
	return strings.Join(known, ", ")
}

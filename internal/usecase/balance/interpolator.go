package balance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// Observation is a single dated value reading for an asset
// Observations are sparse: days between readings carry no entry
type Observation struct {
	Date   domain.Date
	Amount decimal.Decimal
}

// CurrencyConverter converts an amount on a calendar date into euro
type CurrencyConverter interface {
	ToEuro(ctx context.Context, amount decimal.Decimal, currency domain.Currency, on domain.Date) (decimal.Decimal, error)
}

// Interpolator expands sparse observations into a contiguous daily value
// series. Days without an observation carry the most recent prior value
// forward; no numeric smoothing happens between readings
type Interpolator struct {
	Converter CurrencyConverter

	// Today is evaluated at interpolation time; overridable in tests
	Today func() domain.Date
}

// NewInterpolator creates an Interpolator using the given converter
func NewInterpolator(converter CurrencyConverter) *Interpolator {
	return &Interpolator{
		Converter: converter,
		Today:     domain.Today,
	}
}

// Interpolate produces exactly one DailyValue per calendar day from the
// earliest observation's date through today, inclusive
// The output is a pure function of the observations, today's date and the
// rate table: recomputing with unchanged inputs yields identical output.
// An empty observation list yields an empty series. Observations need not
// arrive sorted; two observations on the same day are a caller error that
// the mutation layer prevents
func (i *Interpolator) Interpolate(ctx context.Context, observations []Observation, currency domain.Currency) ([]domain.DailyValue, error) {
	if len(observations) == 0 {
		return nil, nil
	}

	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Date.Before(sorted[b].Date)
	})

	today := i.Today()
	current := sorted[0]
	next := 1

	var series []domain.DailyValue
	for day := current.Date; !day.After(today); day = day.Add(1) {
		// Adopt the next observation once the walk reaches its date
		for next < len(sorted) && !sorted[next].Date.After(day) {
			current = sorted[next]
			next++
		}

		inEuro, err := i.Converter.ToEuro(ctx, current.Amount, currency, day)
		if err != nil {
			return nil, fmt.Errorf("failed to convert balance on %s: %w", day, err)
		}

		series = append(series, domain.DailyValue{
			Date:         day,
			Amount:       current.Amount,
			AmountInEuro: inEuro,
			Currency:     currency,
		})
	}

	return series, nil
}

package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// newTestConverter wires a converter over a cache backed by the fake rate set
func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	mockRepo := new(MockExchangeRateRepository)
	mockRepo.On("ListAll", context.Background()).Return(fakeRates(), nil)

	cache := NewRateCache(mockRepo, DefaultRefreshInterval)
	return NewConverter(cache, map[domain.Currency]decimal.Decimal{
		domain.CurrencySEK: decimal.NewFromInt(10),
	})
}

func TestConverter_ExactRate(t *testing.T) {
	ctx := context.Background()
	converter := newTestConverter(t)

	// SEK has a rate of 10.0202 on 2020-02-02
	result, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencySEK, domain.MustParseDate("2020-02-02"))

	require.NoError(t, err)
	expected := decimal.NewFromInt(100).Div(decimal.NewFromFloat(10.0202))
	assert.True(t, expected.Equal(result), "expected %s, got %s", expected, result)
}

func TestConverter_NearestPastFallback(t *testing.T) {
	ctx := context.Background()
	converter := newTestConverter(t)

	// 2020-02-10 has no rate; the nearest earlier one is 2020-02-02
	result, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencySEK, domain.MustParseDate("2020-02-10"))

	require.NoError(t, err)
	expected := decimal.NewFromInt(100).Div(decimal.NewFromFloat(10.0202))
	assert.True(t, expected.Equal(result), "expected %s, got %s", expected, result)
}

func TestConverter_DefaultFallbackBeyondLookback(t *testing.T) {
	ctx := context.Background()
	converter := newTestConverter(t)

	// 2020-01-01 is more than 14 days before the earliest stored rate,
	// so the configured default of 10 applies
	result, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencySEK, domain.MustParseDate("2020-01-01"))

	require.NoError(t, err)
	expected := decimal.NewFromInt(100).Div(decimal.NewFromInt(10))
	assert.True(t, expected.Equal(result), "expected %s, got %s", expected, result)
}

func TestConverter_UnsupportedCurrency(t *testing.T) {
	ctx := context.Background()
	converter := newTestConverter(t)

	// GBP has neither stored rates nor a default
	_, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencyGBP, domain.MustParseDate("2020-02-02"))

	require.Error(t, err)
	var unsupported *UnsupportedCurrencyError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, domain.CurrencyGBP, unsupported.Currency)
	assert.Contains(t, err.Error(), "GBP")
}

func TestConverter_CurrencyWithRatesButNoHitAndNoDefault(t *testing.T) {
	ctx := context.Background()
	converter := newTestConverter(t)
	converter.Defaults = nil

	// SEK has rates, but none within 14 days of the target and no default left
	_, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencySEK, domain.MustParseDate("2020-01-01"))

	var unsupported *UnsupportedCurrencyError
	require.ErrorAs(t, err, &unsupported)
}

func TestConverter_EuroShortcut(t *testing.T) {
	ctx := context.Background()

	// The reference currency never consults the cache, even when the
	// backing store is unavailable
	mockRepo := new(MockExchangeRateRepository)
	mockRepo.On("ListAll", ctx).Return(nil, errors.New("connection refused"))
	converter := NewConverter(NewRateCache(mockRepo, DefaultRefreshInterval), nil)

	result, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencyEUR, domain.MustParseDate("2020-01-28"))

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(result))
	mockRepo.AssertNotCalled(t, "ListAll")
}

func TestConverter_CacheErrorPropagates(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockExchangeRateRepository)
	mockRepo.On("ListAll", ctx).Return(nil, errors.New("connection refused"))
	converter := NewConverter(NewRateCache(mockRepo, DefaultRefreshInterval), nil)

	_, err := converter.ToEuro(ctx, decimal.NewFromInt(100), domain.CurrencySEK, domain.MustParseDate("2020-02-02"))

	assert.Error(t, err)
}

func TestNearbyRates(t *testing.T) {
	rates := map[domain.Date]decimal.Decimal{
		domain.MustParseDate("2020-02-02"): decimal.NewFromFloat(10.0202),
	}

	assert.Contains(t, nearbyRates(rates, domain.MustParseDate("2020-02-05")), "2020-02-02=10.0202")
	assert.Equal(t, "none", nearbyRates(nil, domain.MustParseDate("2020-02-05")))
}

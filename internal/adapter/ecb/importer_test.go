package ecb

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// sampleCSV mirrors the ECB file shape: trailing commas, N/A markers and
// columns for currencies the rate table does not track
const sampleCSV = `Date,USD,JPY,DKK,GBP,SEK,
2020-02-03,1.1086,119.73,7.4729,0.85283,10.6458,
2020-02-02,1.1052,N/A,7.4731,0.84993,10.6233,
2020-01-31,1.1030,120.03,7.4717,N/A,10.6013,
`

func TestParseHistory(t *testing.T) {
	rates, err := ParseHistory(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	byCurrency := make(map[domain.Currency]domain.ExchangeRate)
	for _, rate := range rates {
		byCurrency[rate.Currency] = rate
	}

	// JPY is not a supported currency and must not appear
	_, ok := byCurrency["JPY"]
	assert.False(t, ok)

	sek, ok := byCurrency[domain.CurrencySEK]
	require.True(t, ok)
	require.Len(t, sek.Rates, 3)
	assert.Equal(t, domain.MustParseDate("2020-02-03"), sek.Rates[0].Date)
	assert.True(t, decimal.RequireFromString("10.6458").Equal(sek.Rates[0].Rate))

	// The N/A dates are simply absent from that currency's series
	gbp, ok := byCurrency[domain.CurrencyGBP]
	require.True(t, ok)
	require.Len(t, gbp.Rates, 2)
	for _, item := range gbp.Rates {
		assert.NotEqual(t, domain.MustParseDate("2020-01-31"), item.Date)
	}

	dkk, ok := byCurrency[domain.CurrencyDKK]
	require.True(t, ok)
	assert.Len(t, dkk.Rates, 3)
}

func TestParseHistory_BadRate(t *testing.T) {
	csv := "Date,SEK,\n2020-02-03,not-a-number,\n"

	_, err := ParseHistory(strings.NewReader(csv))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad SEK rate")
}

func TestParseHistory_BadDate(t *testing.T) {
	csv := "Date,SEK,\n03/02/2020,10.6458,\n"

	_, err := ParseHistory(strings.NewReader(csv))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad date")
}

// MockExchangeRateRepository is a mock implementation of
// ExchangeRateRepository for testing
type MockExchangeRateRepository struct {
	mock.Mock
}

func (m *MockExchangeRateRepository) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}

func (m *MockExchangeRateRepository) ReplaceAll(ctx context.Context, rates []domain.ExchangeRate) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

func zipCSV(t *testing.T, csv string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	file, err := writer.Create("eurofxref-hist.csv")
	require.NoError(t, err)
	_, err = file.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestImport_ReplacesStoredRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipCSV(t, sampleCSV))
	}))
	defer server.Close()

	mockRates := new(MockExchangeRateRepository)
	mockRates.On("ReplaceAll", mock.Anything, mock.MatchedBy(func(rates []domain.ExchangeRate) bool {
		return len(rates) == 4 // USD, DKK, GBP, SEK
	})).Return(nil)

	importer := NewImporter(mockRates)
	importer.URL = server.URL

	// Execute
	err := importer.Import(context.Background())

	// Assert
	require.NoError(t, err)
	mockRates.AssertExpectations(t)
}

func TestImport_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	mockRates := new(MockExchangeRateRepository)
	importer := NewImporter(mockRates)
	importer.URL = server.URL

	err := importer.Import(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	mockRates.AssertNotCalled(t, "ReplaceAll")
}

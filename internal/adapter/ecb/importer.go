package ecb

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
)

// HistoryURL is the daily euro reference rate history published by the
// European Central Bank
const HistoryURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"

// notAvailable marks dates the ECB has no reference rate for a currency
const notAvailable = "N/A"

// Importer downloads the ECB euro reference rate history and replaces the
// stored exchange rates with it
type Importer struct {
	Rates domain.ExchangeRateRepository

	URL        string
	HTTPClient *http.Client
}

// NewImporter creates an Importer writing into the given repository
func NewImporter(rates domain.ExchangeRateRepository) *Importer {
	return &Importer{
		Rates:      rates,
		URL:        HistoryURL,
		HTTPClient: http.DefaultClient,
	}
}

// Import fetches the rate history archive, parses it and replaces the stored
// rates wholesale
func (i *Importer) Import(ctx context.Context) error {
	log.Printf("[INFO] importing exchange rates from the ECB")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build ECB request: %w", err)
	}
	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ECB request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read ECB response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ECB returned %d: %s", resp.StatusCode, body)
	}

	rates, err := parseArchive(body)
	if err != nil {
		return err
	}
	if err := i.Rates.ReplaceAll(ctx, rates); err != nil {
		return fmt.Errorf("failed to store exchange rates: %w", err)
	}

	log.Printf("[INFO] imported ECB exchange rates for %d currencies", len(rates))
	return nil
}

// parseArchive unpacks the ZIP archive and parses the CSV file inside it
func parseArchive(archive []byte) ([]domain.ExchangeRate, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ECB archive: %w", err)
	}
	if len(reader.File) == 0 {
		return nil, errors.New("ECB archive contains no files")
	}

	file, err := reader.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file in ECB archive: %w", err)
	}
	defer file.Close()

	return ParseHistory(file)
}

// ParseHistory parses the ECB reference rate CSV: a Date column followed by
// one column per currency, with "N/A" marking dates without a rate
// Only supported non-euro currencies are kept
func ParseHistory(r io.Reader) ([]domain.ExchangeRate, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// The file ends each row with a trailing comma, so column counts vary
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ECB header: %w", err)
	}

	columns := make(map[domain.Currency]int)
	for idx, name := range header {
		for _, currency := range domain.SupportedCurrencies {
			if currency.IsReference() {
				continue
			}
			if name == string(currency) {
				columns[currency] = idx
			}
		}
	}

	byCurrency := make(map[domain.Currency]*domain.ExchangeRate, len(columns))
	var result []domain.ExchangeRate
	for currency := range columns {
		result = append(result, domain.ExchangeRate{Currency: currency})
	}
	for idx := range result {
		byCurrency[result[idx].Currency] = &result[idx]
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ECB row: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		date, err := domain.ParseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("bad date in ECB data: %w", err)
		}

		for currency, idx := range columns {
			if idx >= len(record) || record[idx] == notAvailable || record[idx] == "" {
				continue
			}
			rate, err := decimal.NewFromString(record[idx])
			if err != nil {
				return nil, fmt.Errorf("bad %s rate on %s: %w", currency, date, err)
			}
			row := byCurrency[currency]
			row.Rates = append(row.Rates, domain.ExchangeRateItem{Date: date, Rate: rate})
		}
	}

	return result, nil
}

package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wealthapp/wealth-backend/internal/domain"
	"github.com/wealthapp/wealth-backend/internal/usecase/stocks"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

const (
	functionTimeSeries = "TIME_SERIES_DAILY_ADJUSTED"
	functionSearch     = "SYMBOL_SEARCH"
)

// Client talks to the AlphaVantage API for daily price history and symbol search
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

var _ stocks.MarketData = (*Client)(nil)

// New creates a new AlphaVantage client
func New(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    defaultBaseURL,
		HTTPClient: http.DefaultClient,
	}
}

// timeSeriesResponse is the shape of a TIME_SERIES_DAILY_ADJUSTED response
type timeSeriesResponse struct {
	MetaData struct {
		Symbol string `json:"2. Symbol"`
	} `json:"Meta Data"`
	TimeSeries map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note string `json:"Note"`
}

// searchResponse is the shape of a SYMBOL_SEARCH response
type searchResponse struct {
	BestMatches []struct {
		Symbol   string `json:"1. symbol"`
		Name     string `json:"2. name"`
		Region   string `json:"4. region"`
		Currency string `json:"8. currency"`
	} `json:"bestMatches"`
	Note string `json:"Note"`
}

// TickerHistory returns the full daily closing price history for a symbol,
// sorted by date ascending
func (c *Client) TickerHistory(ctx context.Context, symbol string) ([]domain.StockTickerItem, error) {
	params := url.Values{
		"function":   {functionTimeSeries},
		"symbol":     {symbol},
		"outputsize": {"full"},
	}

	var data timeSeriesResponse
	if err := c.get(ctx, params, &data); err != nil {
		return nil, err
	}
	if data.Note != "" {
		return nil, fmt.Errorf("alphavantage rate limit: %s", data.Note)
	}
	if len(data.TimeSeries) == 0 {
		return nil, fmt.Errorf("no daily time series for symbol %s", symbol)
	}

	prices := make([]domain.StockTickerItem, 0, len(data.TimeSeries))
	for rawDate, day := range data.TimeSeries {
		date, err := domain.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("bad date in time series for %s: %w", symbol, err)
		}
		price, err := decimal.NewFromString(day.Close)
		if err != nil {
			return nil, fmt.Errorf("bad close price for %s on %s: %w", symbol, rawDate, err)
		}
		prices = append(prices, domain.StockTickerItem{Date: date, Price: price})
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
	return prices, nil
}

// SearchTicker returns the best matches for a symbol or name fragment
func (c *Client) SearchTicker(ctx context.Context, keywords string) ([]stocks.SearchResult, error) {
	params := url.Values{
		"function": {functionSearch},
		"keywords": {keywords},
	}

	var data searchResponse
	if err := c.get(ctx, params, &data); err != nil {
		return nil, err
	}
	if data.Note != "" {
		return nil, fmt.Errorf("alphavantage rate limit: %s", data.Note)
	}

	results := make([]stocks.SearchResult, 0, len(data.BestMatches))
	for _, match := range data.BestMatches {
		results = append(results, stocks.SearchResult{
			Symbol:   match.Symbol,
			Name:     match.Name,
			Region:   match.Region,
			Currency: domain.Currency(match.Currency),
		})
	}
	return results, nil
}

// get executes one API request and decodes the JSON response into out
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build alphavantage request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("alphavantage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read alphavantage response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("alphavantage returned %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode alphavantage response: %w", err)
	}
	return nil
}

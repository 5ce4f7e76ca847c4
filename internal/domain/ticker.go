package domain

import "github.com/shopspring/decimal"

// StockTickerItem is a single dated closing price for a ticker
type StockTickerItem struct {
	Date  Date
	Price decimal.Decimal
}

// StockTicker holds the daily price history of one stock symbol
// The quote currency is resolved once when the ticker is first created and
// applies to every price in the history
type StockTicker struct {
	Symbol   string
	Currency Currency
	Prices   []StockTickerItem
}

// PricesByDate converts the price list into a date-keyed lookup map
func (t StockTicker) PricesByDate() map[Date]decimal.Decimal {
	prices := make(map[Date]decimal.Decimal, len(t.Prices))
	for _, item := range t.Prices {
		prices[item.Date] = item.Price
	}
	return prices
}

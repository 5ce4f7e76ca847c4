package domain

import "github.com/shopspring/decimal"

// ExchangeRateItem is a single dated rate observation for a currency
type ExchangeRateItem struct {
	Date Date
	Rate decimal.Decimal // units of the currency per 1 EUR
}

// ExchangeRate holds the historical rates of one currency against the euro
// The rates list is sparse: weekends and holidays have no entry, and any
// lookup date may legitimately be absent
type ExchangeRate struct {
	Currency Currency
	Rates    []ExchangeRateItem
}

// RatesByDate converts the rates list into a date-keyed lookup map
func (e ExchangeRate) RatesByDate() map[Date]decimal.Decimal {
	rates := make(map[Date]decimal.Decimal, len(e.Rates))
	for _, item := range e.Rates {
		rates[item.Date] = item.Rate
	}
	return rates
}

// RateTable maps each currency to its date-keyed rate lookup table
type RateTable map[Currency]map[Date]decimal.Decimal

// BuildRateTable converts stored exchange rate rows into an in-memory table
func BuildRateTable(rows []ExchangeRate) RateTable {
	table := make(RateTable, len(rows))
	for _, row := range rows {
		table[row.Currency] = row.RatesByDate()
	}
	return table
}

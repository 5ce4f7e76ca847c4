package domain

// Currency is an ISO-4217 currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencySEK Currency = "SEK"
	CurrencyDKK Currency = "DKK"
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
)

// ReferenceCurrency is the common currency all asset values are normalized to
const ReferenceCurrency = CurrencyEUR

// SupportedCurrencies lists every currency the system tracks exchange rates for
var SupportedCurrencies = []Currency{
	CurrencyEUR,
	CurrencySEK,
	CurrencyDKK,
	CurrencyGBP,
	CurrencyUSD,
}

// IsReference reports whether the currency is the reference currency itself
func (c Currency) IsReference() bool {
	return c == ReferenceCurrency
}

package domain

import "github.com/shopspring/decimal"

// Prices and balances go over the wire as JSON numbers, as the web client expects.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// LineTotal is quantity × unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a resolved quote: the rate recorded for a currency on a date
type ExchangeRate struct {
	Currency string          `json:"currency"`
	Date     time.Time       `json:"date"`
	Rate     decimal.Decimal `json:"rate"`
}

// RateRecord is a single raw record as returned by a rate provider. Fields are
// kept as delivered on the wire; parsing and validation belong to the resolver.
type RateRecord struct {
	Currency     string `json:"country_currency_desc"`
	ExchangeRate string `json:"exchange_rate"`
	RecordDate   string `json:"record_date"`
}

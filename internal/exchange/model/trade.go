package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a single executed transaction reported by a broker.
// ID and Timestamp (when absent) are assigned by the store on acceptance;
// after that the record is immutable.
type Trade struct {
	ID        int64           `json:"id"`
	Symbol    string          `json:"tickerSymbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	BrokerID  string          `json:"brokerId"`
	Timestamp time.Time       `json:"timestamp"`
}

// StockPrice is the per-symbol running average exposed by price queries.
type StockPrice struct {
	Symbol       string          `json:"tickerSymbol"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
}

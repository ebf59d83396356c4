package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a live market quote for one symbol.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	DailyChange decimal.Decimal `json:"daily_change"`
	AsOf        time.Time       `json:"as_of"`
}

// PricePoint is one entry of a historical daily close series, sorted
// ascending by date wherever the aggregator consumes it.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceBar represents one day of OHLCV price data for a symbol.
type PriceBar struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

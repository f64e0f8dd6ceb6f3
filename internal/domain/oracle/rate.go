package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Pair identifies an exchange rate feed.
type Pair string

const (
	// PairETHUSD is the price of one settlement unit in USD.
	PairETHUSD Pair = "ETH-USD"
	// PairEURUSD is the price of one EUR in USD.
	PairEURUSD Pair = "EUR-USD"
)

// Rate is one oracle observation. Value is an integer scaled by
// 10^Decimals, matching the aggregator wire format.
type Rate struct {
	Value     int64
	Decimals  int32
	UpdatedAt time.Time
}

// Decimal returns the rate as a plain decimal number.
func (r Rate) Decimal() decimal.Decimal {
	return decimal.New(r.Value, -r.Decimals)
}

// RateSource supplies exchange rates. Implementations must not cache: the
// engine expects a fresh observation on every call and applies its own
// zero/staleness checks.
type RateSource interface {
	LatestRate(ctx context.Context, pair Pair) (Rate, error)
}

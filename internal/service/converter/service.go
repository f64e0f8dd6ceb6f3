package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/oracle"
	"github.com/shopspring/decimal"
)

// settlementScale converts whole settlement units to smallest units.
var settlementScale = decimal.New(1, offer.SettlementDecimals)

// Quote is one funding computation: the per-period payment snapshot and the
// total the employer must hold before the offer can be created.
type Quote struct {
	PerPeriod decimal.Decimal
	Required  decimal.Decimal
}

// Converter turns logical-currency amounts into settlement smallest units
// and back, reading fresh oracle rates on every call. All results are
// truncated toward zero so repeated conversions are deterministic.
type Converter struct {
	rates       oracle.RateSource
	operatorFee decimal.Decimal
	maxRateAge  time.Duration
}

// NewConverter creates a converter. maxRateAge of zero disables the
// staleness check (used with static development rates).
func NewConverter(rates oracle.RateSource, operatorFee decimal.Decimal, maxRateAge time.Duration) *Converter {
	return &Converter{
		rates:       rates,
		operatorFee: operatorFee,
		maxRateAge:  maxRateAge,
	}
}

// rate fetches one pair and applies the engine's oracle checks: a zero or
// negative answer and a stale observation both fail the whole call.
func (c *Converter) rate(ctx context.Context, pair oracle.Pair) (decimal.Decimal, error) {
	r, err := c.rates.LatestRate(ctx, pair)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if r.Value <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", oracle.ErrZeroRate, pair)
	}
	if c.maxRateAge > 0 && time.Since(r.UpdatedAt) > c.maxRateAge {
		return decimal.Decimal{}, fmt.Errorf("%w: %s updated at %s", oracle.ErrStaleRate, pair, r.UpdatedAt)
	}
	return r.Decimal(), nil
}

// ToSettlement converts an amount in the given logical currency into
// settlement smallest units. USD amounts divide by the ETH-USD rate; EUR
// amounts chain through USD via the EUR-USD rate; native amounts only scale.
func (c *Converter) ToSettlement(ctx context.Context, amount decimal.Decimal, currency offer.Currency) (decimal.Decimal, error) {
	switch currency {
	case offer.CurrencyETH:
		return amount.Mul(settlementScale).Truncate(0), nil

	case offer.CurrencyUSD:
		ethUSD, err := c.rate(ctx, oracle.PairETHUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return amount.Mul(settlementScale).Div(ethUSD).Truncate(0), nil

	case offer.CurrencyEUR:
		ethUSD, err := c.rate(ctx, oracle.PairETHUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		eurUSD, err := c.rate(ctx, oracle.PairEURUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return amount.Mul(eurUSD).Mul(settlementScale).Div(ethUSD).Truncate(0), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unknown currency %q", currency)
}

// ToCurrency converts settlement smallest units back into the given logical
// currency, in whole currency units.
func (c *Converter) ToCurrency(ctx context.Context, settlement decimal.Decimal, currency offer.Currency) (decimal.Decimal, error) {
	switch currency {
	case offer.CurrencyETH:
		return settlement.Div(settlementScale), nil

	case offer.CurrencyUSD:
		ethUSD, err := c.rate(ctx, oracle.PairETHUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return settlement.Mul(ethUSD).Div(settlementScale), nil

	case offer.CurrencyEUR:
		ethUSD, err := c.rate(ctx, oracle.PairETHUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		eurUSD, err := c.rate(ctx, oracle.PairEURUSD)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return settlement.Mul(ethUSD).Div(eurUSD).Div(settlementScale), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unknown currency %q", currency)
}

// Quote computes the per-period settlement snapshot and the required funding
// for a prospective offer: three periods for salary offers, the 72x8-hour
// reporting window for hourly ones. Auto-funded offers additionally reserve
// one operator fee, debited to the operator at creation time.
func (c *Converter) Quote(ctx context.Context, amount decimal.Decimal, currency offer.Currency, offerType offer.OfferType, autoFund bool) (Quote, error) {
	per, err := c.ToSettlement(ctx, amount, currency)
	if err != nil {
		return Quote{}, err
	}

	var required decimal.Decimal
	switch offerType {
	case offer.TypeSalary:
		required = per.Mul(decimal.NewFromInt(offer.SalaryCoveragePeriods))
	case offer.TypeHourly:
		required = per.Mul(decimal.NewFromInt(offer.HourlyCoverageHours))
	default:
		return Quote{}, fmt.Errorf("unknown offer type %q", offerType)
	}

	if autoFund {
		required = required.Add(c.operatorFee)
	}

	return Quote{PerPeriod: per, Required: required}, nil
}

// RequiredFunding returns only the required total of Quote.
func (c *Converter) RequiredFunding(ctx context.Context, amount decimal.Decimal, currency offer.Currency, offerType offer.OfferType, autoFund bool) (decimal.Decimal, error) {
	q, err := c.Quote(ctx, amount, currency, offerType, autoFund)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Required, nil
}

// OperatorFee exposes the configured flat fee.
func (c *Converter) OperatorFee() decimal.Decimal {
	return c.operatorFee
}

package offer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OfferType enum
type OfferType string

const (
	TypeHourly OfferType = "hourly"
	TypeSalary OfferType = "salary"
)

func ParseOfferType(s string) (OfferType, error) {
	switch OfferType(s) {
	case TypeHourly, TypeSalary:
		return OfferType(s), nil
	}
	return "", fmt.Errorf("unknown offer type %q", s)
}

// OfferState enum. Transitions are strictly monotonic:
// unsigned -> active -> closed, with unsigned -> closed also allowed.
type OfferState string

const (
	StateUnsigned OfferState = "unsigned"
	StateActive   OfferState = "active"
	StateClosed   OfferState = "closed"
)

// Currency is the logical currency an offer's nominal amount is stated in.
// Settlement always happens in the native 18-decimal unit.
type Currency string

const (
	CurrencyETH Currency = "ETH"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyETH, CurrencyUSD, CurrencyEUR:
		return Currency(s), nil
	}
	return "", fmt.Errorf("unknown currency %q", s)
}

// SettlementDecimals is the precision of the settlement currency; one whole
// settlement unit equals 10^18 smallest units.
const SettlementDecimals = 18

// SalaryPeriod is the due window for salary offers.
const SalaryPeriod = 30 * 24 * time.Hour

// Coverage multipliers used when quoting required funding.
const (
	// SalaryCoveragePeriods buffers three payment periods against late
	// upkeep triggers.
	SalaryCoveragePeriods = 3
	// HourlyCoverageHours is the assumed maximum of accruable unpaid hours:
	// 72 accounting cycles of 8 hours each.
	HourlyCoverageHours = 72 * 8
)

// Offer is one employer-employee payroll agreement with its own escrow.
type Offer struct {
	ID         string
	EmployerID string
	EmployeeID string
	Type       OfferType
	State      OfferState

	// Amount is the nominal payment (monthly salary or per-hour rate) in
	// the offer's logical currency.
	Amount   decimal.Decimal
	Currency Currency

	// EthAmount is Amount converted once, at creation time, into settlement
	// smallest units. Payments always disburse this snapshot, never a fresh
	// conversion.
	EthAmount decimal.Decimal

	DurationSeconds int64
	AutoFundEnabled bool

	// LastPaymentAt drives salary due-ness; set at signing time, advanced on
	// every successful salary payment.
	LastPaymentAt *time.Time

	// WorkedHours is meaningful for hourly offers only; reset to zero after
	// every successful hourly payment.
	WorkedHours int64

	// EscrowedBalance holds settlement units reserved for this offer, drawn
	// down on each payment and refunded to the employer on withdraw.
	EscrowedBalance decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (o *Offer) CanTransitionTo(next OfferState) bool {
	switch o.State {
	case StateUnsigned:
		return next == StateActive || next == StateClosed
	case StateActive:
		return next == StateClosed
	}
	return false
}

// SalaryDue reports whether a salary offer has a payment period elapsed.
func (o *Offer) SalaryDue(now time.Time) bool {
	if o.Type != TypeSalary || o.State != StateActive || o.LastPaymentAt == nil {
		return false
	}
	return now.Sub(*o.LastPaymentAt) >= SalaryPeriod
}

// HoursDue reports whether an hourly offer has accrued unpaid hours. Closed
// offers stay due until their residual hours are settled.
func (o *Offer) HoursDue() bool {
	if o.Type != TypeHourly || o.State == StateUnsigned {
		return false
	}
	return o.WorkedHours > 0
}

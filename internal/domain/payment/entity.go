package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger entry.
type Kind string

const (
	KindDeposit       Kind = "deposit"
	KindEscrowReserve Kind = "escrow_reserve"
	KindEscrowTopUp   Kind = "escrow_top_up"
	KindEscrowRefund  Kind = "escrow_refund"
	KindSalary        Kind = "salary"
	KindHourly        Kind = "hourly"
	KindOperatorFee   Kind = "operator_fee"
	KindWithdrawal    Kind = "withdrawal"
)

// Entry is one append-only ledger record. Amounts are settlement smallest
// units; FromAccount/ToAccount are nil for the external world (deposits and
// withdrawals) and OfferID is nil for entries not tied to an offer.
type Entry struct {
	ID          string
	OfferID     *string
	FromAccount *string
	ToAccount   *string
	Kind        Kind
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

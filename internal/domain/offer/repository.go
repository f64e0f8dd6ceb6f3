package offer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OfferRepository defines data access for offers. The offers table doubles as
// the scheduler's append-only enumeration set: offers are never deleted,
// closed offers persist for audit and withdrawal.
type OfferRepository interface {
	Create(ctx context.Context, o Offer) (Offer, error)
	GetByID(ctx context.Context, id string) (Offer, error)

	// GetForUpdate locks the offer row; every mutation of escrow, state,
	// worked hours or payment timestamp happens against a locked row so that
	// concurrent triggers serialize per offer.
	GetForUpdate(ctx context.Context, id string) (Offer, error)

	ListByEmployer(ctx context.Context, employerID string) ([]Offer, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Offer, error)

	// CountNonClosedByEmployer backs the employer withdrawal gate.
	CountNonClosedByEmployer(ctx context.Context, employerID string) (int64, error)

	// ListDue returns offers with a payment due at now: active salary offers
	// whose period has elapsed, and hourly offers with accrued hours
	// (including closed ones awaiting residual settlement).
	ListDue(ctx context.Context, now time.Time) ([]Offer, error)

	UpdateState(ctx context.Context, id string, state OfferState) error

	// Activate marks the offer signed, stamping the payment clock.
	Activate(ctx context.Context, id string, signedAt time.Time) error

	UpdateEscrow(ctx context.Context, id string, escrow decimal.Decimal) error
	UpdateWorkedHours(ctx context.Context, id string, hours int64) error
	RecordPayment(ctx context.Context, id string, escrow decimal.Decimal, hours int64, paidAt time.Time) error
}

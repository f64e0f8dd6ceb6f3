package offer

import (
	"context"

	"github.com/paycrow/paycrow-backend-go/internal/domain/payment"
)

// OfferService is the per-offer state machine. All methods derive the caller
// from the request context and enforce the role rules: sign is employee-only,
// close is either party, payments are employer-only (the upkeep sweep uses
// the operator entry points below), withdraw is employer-only.
type OfferService interface {
	Get(ctx context.Context, offerID string) (OfferResponse, error)
	ListMine(ctx context.Context) ([]OfferResponse, error)

	// Payments lists the offer's ledger entries, oldest first. Visible to
	// the offer's parties only.
	Payments(ctx context.Context, offerID string) ([]payment.EntryResponse, error)

	Sign(ctx context.Context, offerID string) (OfferResponse, error)
	Close(ctx context.Context, offerID string) (OfferResponse, error)

	// PayMonthly disburses one salary period from escrow. Direct employer
	// calls are not gated on the due window.
	PayMonthly(ctx context.Context, offerID string) (PaymentResponse, error)

	// AddWorkedHours accrues unpaid hours on an hourly offer (employee only).
	AddWorkedHours(ctx context.Context, offerID string, req AddHoursRequest) (OfferResponse, error)

	// PayWorkedHours settles all accrued hours. With zero accrued hours it
	// succeeds as a no-op paying nothing. Allowed on a closed offer to
	// settle residual hours before escrow withdrawal.
	PayWorkedHours(ctx context.Context, offerID string) (PaymentResponse, error)

	// Withdraw returns a closed offer's residual escrow to the employer's
	// ledger balance.
	Withdraw(ctx context.Context, offerID string) (OfferResponse, error)

	// Operator entry points used by the upkeep sweep. They enforce the due
	// window atomically with the payment and credit the fee to operatorID.
	PayMonthlyAsOperator(ctx context.Context, offerID, operatorID string) (PaymentResponse, error)
	PayWorkedHoursAsOperator(ctx context.Context, offerID, operatorID string) (PaymentResponse, error)
}

package account

import (
	"context"

	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/payment"
)

// AuthService issues access tokens for ledger participants.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
}

// LedgerService is the funding ledger: deposits, offer creation with its
// funding-sufficiency check, escrow top-ups and employer withdrawal. The
// caller identity comes from the request context.
type LedgerService interface {
	// Deposit credits the caller's balance. No preconditions.
	Deposit(ctx context.Context, req DepositRequest) (BalanceResponse, error)

	Balance(ctx context.Context) (BalanceResponse, error)

	// CountRequiredFund quotes the funding a prospective offer needs.
	// Read-only; fetches fresh oracle rates.
	CountRequiredFund(ctx context.Context, req offer.RequiredFundRequest) (offer.RequiredFundResponse, error)

	// CreateJobOffer reserves the required funding from the caller's balance
	// into a new offer's escrow and registers the offer for upkeep.
	CreateJobOffer(ctx context.Context, req offer.CreateOfferRequest) (offer.OfferResponse, error)

	// FundJobOffer moves funds from the caller's balance into an existing
	// offer's escrow. The caller must be the offer's employer or employee.
	FundJobOffer(ctx context.Context, offerID string, req offer.FundOfferRequest) (offer.OfferResponse, error)

	// Withdraw transfers the caller's entire unlocked balance out of the
	// ledger. Blocked while any offer the caller created is not closed.
	Withdraw(ctx context.Context) (WithdrawResponse, error)

	// History lists the caller's most recent ledger entries, newest first.
	History(ctx context.Context, limit int) ([]payment.EntryResponse, error)
}

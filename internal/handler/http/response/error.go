package response

import (
	"errors"
	"net/http"

	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/domain/notification"
	"github.com/paycrow/paycrow-backend-go/internal/domain/offer"
	"github.com/paycrow/paycrow-backend-go/internal/domain/oracle"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Account domain errors
	case errors.Is(err, account.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, account.ErrAccountNotFound):
		NotFound(w, "Account not found")
	case errors.Is(err, account.ErrEmailExists):
		Conflict(w, "Email already registered")
	case errors.Is(err, account.ErrInsufficientFunds):
		UnprocessableEntity(w, "INSUFFICIENT_FUNDS", "Ledger balance cannot cover the requested amount")
	case errors.Is(err, account.ErrWithdrawalBlocked):
		UnprocessableEntity(w, "WITHDRAWAL_BLOCKED", "Close all offers before withdrawing")
	case errors.Is(err, account.ErrNothingToWithdraw):
		UnprocessableEntity(w, "NOTHING_TO_WITHDRAW", "No funds available to withdraw")

	// Offer domain errors. An offer that exists but belongs to someone else
	// is reported as not found so offer ids are not probeable.
	case errors.Is(err, offer.ErrOfferNotFound), errors.Is(err, offer.ErrInvalidOffer):
		NotFound(w, "Offer not found")
	case errors.Is(err, offer.ErrUnauthorized):
		Forbidden(w, "Not permitted for this offer")
	case errors.Is(err, offer.ErrInvalidState):
		Conflict(w, "Operation not permitted in current offer state")
	case errors.Is(err, offer.ErrInvalidOfferType):
		Conflict(w, "Operation not supported by this offer type")
	case errors.Is(err, offer.ErrNotDue):
		Conflict(w, "Offer has no payment due")
	case errors.Is(err, offer.ErrInsufficientEscrow):
		UnprocessableEntity(w, "INSUFFICIENT_ESCROW", "Escrowed balance cannot cover the due payment")
	case errors.Is(err, offer.ErrOutstandingHours):
		UnprocessableEntity(w, "OUTSTANDING_HOURS", "Settle accrued hours before withdrawing escrow")

	// Oracle errors
	case errors.Is(err, oracle.ErrRateUnavailable),
		errors.Is(err, oracle.ErrZeroRate),
		errors.Is(err, oracle.ErrStaleRate):
		ServiceUnavailable(w, "Price oracle unavailable")

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrUnauthorized):
		Forbidden(w, "Not permitted for this notification")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

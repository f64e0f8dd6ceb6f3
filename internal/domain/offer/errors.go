package offer

import "errors"

var (
	ErrOfferNotFound      = errors.New("offer not found")
	ErrInvalidOffer       = errors.New("offer does not belong to caller")
	ErrUnauthorized       = errors.New("caller is not permitted to perform this operation")
	ErrInvalidState       = errors.New("operation not permitted in current offer state")
	ErrInvalidOfferType   = errors.New("operation not supported by this offer type")
	ErrInsufficientEscrow = errors.New("escrowed balance cannot cover the due payment")
	ErrOutstandingHours   = errors.New("offer has accrued unpaid hours")
	ErrNotDue             = errors.New("offer has no payment due")
)

package account

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInsufficientFunds  = errors.New("insufficient ledger balance")
	ErrWithdrawalBlocked  = errors.New("withdrawal blocked: employer has non-closed offers")
	ErrNothingToWithdraw  = errors.New("nothing to withdraw")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

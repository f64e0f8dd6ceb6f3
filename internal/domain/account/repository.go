package account

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountRepository defines data access for ledger accounts.
type AccountRepository interface {
	Create(ctx context.Context, acc Account) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)

	// GetForUpdate locks the account row for the duration of the enclosing
	// transaction. Balance mutations must go through a locked row.
	GetForUpdate(ctx context.Context, id string) (Account, error)

	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
}

package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger participant. The same account can act as an employer
// (funding offers from Balance), as an employee (receiving payments into
// Balance) and as an upkeep operator (collecting trigger fees).
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	// Balance holds unlocked funds in settlement smallest units.
	// Funds reserved inside an offer's escrow are never part of Balance.
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

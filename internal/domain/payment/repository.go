package payment

import "context"

// PaymentRepository records ledger entries. Entries are written inside the
// same transaction as the balance mutation they describe and never updated.
type PaymentRepository interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	ListByOffer(ctx context.Context, offerID string) ([]Entry, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryResponse is the JSON shape of one ledger entry.
type EntryResponse struct {
	ID          string          `json:"id"`
	OfferID     *string         `json:"offer_id,omitempty"`
	FromAccount *string         `json:"from_account,omitempty"`
	ToAccount   *string         `json:"to_account,omitempty"`
	Kind        Kind            `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

func ToResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		OfferID:     e.OfferID,
		FromAccount: e.FromAccount,
		ToAccount:   e.ToAccount,
		Kind:        e.Kind,
		Amount:      e.Amount,
		CreatedAt:   e.CreatedAt,
	}
}

func ToResponseList(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToResponse(e))
	}
	return out
}

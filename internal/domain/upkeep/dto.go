package upkeep

import "github.com/shopspring/decimal"

// SweepOutcome classifies the result of one offer within a sweep.
type SweepOutcome string

const (
	OutcomePaid    SweepOutcome = "paid"
	OutcomeSkipped SweepOutcome = "skipped"
	OutcomeFailed  SweepOutcome = "failed"
)

// SweepResult is the per-offer record of a sweep.
type SweepResult struct {
	OfferID string          `json:"offer_id"`
	Outcome SweepOutcome    `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
	Error   string          `json:"error,omitempty"`
}

// SweepReport aggregates a full sweep.
type SweepReport struct {
	Paid    int           `json:"paid"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
	Results []SweepResult `json:"results"`
}

// CheckDueResponse is the read-only due probe.
type CheckDueResponse struct {
	Due bool `json:"due"`
}

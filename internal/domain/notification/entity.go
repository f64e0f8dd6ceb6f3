package notification

import (
	"time"
)

// NotificationType represents the type of engine notification
type NotificationType string

const (
	TypeOfferCreated         NotificationType = "offer_created"
	TypeContractSigned       NotificationType = "contract_signed"
	TypeContractClosed       NotificationType = "contract_closed"
	TypeSalaryPaid           NotificationType = "salary_paid"
	TypeContractNeedsFunding NotificationType = "contract_needs_funding"
)

// Notification represents an engine event delivered to a participant. Data
// carries the event payload consumed by external tooling: the offer id, and
// per type the paid amount, the required funding amount, the new state or the
// caller identity.
type Notification struct {
	ID          string
	RecipientID string
	OfferID     *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

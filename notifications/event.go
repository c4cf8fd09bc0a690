package notifications

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventWithdrawalRequested   = "withdrawal.requested"
	EventWithdrawalCompleted   = "withdrawal.completed"
	EventWithdrawalFailed      = "withdrawal.failed"
	EventPaymentCompleted      = "payment.completed"
	EventPaymentFailed         = "payment.failed"
	EventResearchPurchased     = "research.purchased"
	EventSessionBooked         = "session.booked"
	EventSubscriptionActivated = "subscription.activated"
)

// Event is one ledger notification. Recipients get it over their socket;
// AlertAdmins additionally mails the platform inbox.
type Event struct {
	Type        string      `json:"type"`
	Recipients  []uuid.UUID `json:"-"`
	Payload     interface{} `json:"payload"`
	AlertAdmins bool        `json:"-"`
	Subject     string      `json:"-"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

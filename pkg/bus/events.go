package bus

import (
	"time"

	"github.com/google/uuid"
)

const (
	StreamName     = "STOREFRONT"
	StreamSubjects = "storefront.>"

	SubjectOrderFulfilled   = "storefront.orders.fulfilled"
	SubjectHistoryRequested = "storefront.history.requested"
)

// OrderFulfilled is published after a charge has been recorded and its download link issued.
// The credential id is a bearer token and never leaves the service.
type OrderFulfilled struct {
	EventID       string    `json:"event_id"`
	OrderID       uuid.UUID `json:"order_id"`
	UserID        uuid.UUID `json:"user_id"`
	ProductID     uuid.UUID `json:"product_id"`
	LinkExpiresAt time.Time `json:"link_expires_at"`
	AmountCents   int64     `json:"amount_cents"`
	Notified      bool      `json:"notified"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// HistoryRequested is published after an order history email was sent to a known customer.
type HistoryRequested struct {
	UserID      uuid.UUID `json:"user_id"`
	Orders      int       `json:"orders"`
	Credentials int       `json:"credentials"`
	OccurredAt  time.Time `json:"occurred_at"`
}

package webhookevent

import (
	"time"
)

// WebhookEvent records a Stripe event that has already been applied.
// The ID is Stripe's event identifier; a replayed delivery with the
// same ID short-circuits before touching invoices or payments.
type WebhookEvent struct {
	ID          string    `db:"id" json:"id"`
	EventType   string    `db:"event_type" json:"event_type"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

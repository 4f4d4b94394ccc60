package webhookevent

import (
	"context"
)

// Repository defines the interface for processed-event bookkeeping
type Repository interface {
	// MarkProcessed records the event ID. It reports whether this call
	// recorded it; false means the ID was already present.
	MarkProcessed(ctx context.Context, event *WebhookEvent) (bool, error)
	IsProcessed(ctx context.Context, id string) (bool, error)
}

package postgres

import (
	"context"

	"github.com/covionstudio/billing/internal/domain/webhookevent"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/postgres"
)

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, log *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: log}
}

// MarkProcessed inserts the event ID with ON CONFLICT DO NOTHING so a
// replayed delivery can be detected from the affected-row count rather
// than a race-prone select-then-insert.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, event *webhookevent.WebhookEvent) (bool, error) {
	q := r.db.Querier(ctx)
	res, err := q.ExecContext(ctx, `
		INSERT INTO webhook_events (id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		event.ID, event.EventType, event.ProcessedAt,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *webhookEventRepository) IsProcessed(ctx context.Context, id string) (bool, error) {
	var exists bool
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM webhook_events WHERE id = $1)`, id)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check webhook event").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/covionstudio/billing/internal/domain/payment"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/postgres"
	"github.com/covionstudio/billing/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: log}
}

const paymentColumns = `id, idempotency_key, invoice_id, amount, currency, payment_method_type,
	payment_status, stripe_payment_intent_id, failure_reason, metadata,
	status, created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"payment_status", p.PaymentStatus,
	)

	q := r.db.Querier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.IdempotencyKey, p.InvoiceID, p.Amount, p.Currency, p.PaymentMethodType,
		p.PaymentStatus, p.StripePaymentIntentID, p.FailureReason, p.Metadata,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ierr.WithError(err).
				WithHint("A payment with this idempotency key already exists").
				WithReportableDetails(map[string]any{
					"invoice_id":      p.InvoiceID,
					"idempotency_key": p.IdempotencyKey,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &p, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1 AND status != $2`,
		id, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Payment with ID %s was not found", id).
				WithReportableDetails(map[string]any{"payment_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	var p payment.Payment
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &p, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE idempotency_key = $1 AND status != $2`,
		key, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("No payment recorded for this idempotency key").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment by idempotency key").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*payment.Payment, error) {
	var p payment.Payment
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &p, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE stripe_payment_intent_id = $1 AND status != $2
		ORDER BY created_at DESC
		LIMIT 1`,
		paymentIntentID, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("No payment recorded for this payment intent").
				WithReportableDetails(map[string]any{"payment_intent_id": paymentIntentID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment by payment intent").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	conditions, args := paymentFilterConditions(filter)
	query += " WHERE " + conditions
	query += fmt.Sprintf(" ORDER BY %s %s", sortColumn(filter.GetSort()), sortOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	payments := make([]*payment.Payment, 0)
	q := r.db.Querier(ctx)
	if err := q.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}

	conditions, args := paymentFilterConditions(filter)
	var count int
	q := r.db.Querier(ctx)
	if err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM payments WHERE "+conditions, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count payments").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func paymentFilterConditions(filter *types.PaymentFilter) (string, []interface{}) {
	conditions := "status != $1"
	args := []interface{}{types.StatusDeleted}

	if filter.InvoiceID != nil {
		args = append(args, *filter.InvoiceID)
		conditions += fmt.Sprintf(" AND invoice_id = $%d", len(args))
	}
	if filter.PaymentStatus != nil {
		args = append(args, *filter.PaymentStatus)
		conditions += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if filter.StripePaymentIntentID != nil {
		args = append(args, *filter.StripePaymentIntentID)
		conditions += fmt.Sprintf(" AND stripe_payment_intent_id = $%d", len(args))
	}
	if filter.Currency != nil {
		args = append(args, *filter.Currency)
		conditions += fmt.Sprintf(" AND currency = $%d", len(args))
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			args = append(args, *filter.StartTime)
			conditions += fmt.Sprintf(" AND created_at >= $%d", len(args))
		}
		if filter.EndTime != nil {
			args = append(args, *filter.EndTime)
			conditions += fmt.Sprintf(" AND created_at <= $%d", len(args))
		}
	}
	return conditions, args
}

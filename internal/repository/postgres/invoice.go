package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/covionstudio/billing/internal/domain/invoice"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/postgres"
	"github.com/covionstudio/billing/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, log *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: log}
}

const invoiceColumns = `id, invoice_number, customer_name, customer_email, currency, amount_due,
	description, invoice_status, stripe_payment_intent_id, paid_at, metadata,
	status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	q := r.db.Querier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		inv.ID, inv.InvoiceNumber, inv.CustomerName, inv.CustomerEmail, inv.Currency,
		inv.AmountDue, inv.Description, inv.InvoiceStatus, inv.StripePaymentIntentID,
		inv.PaidAt, inv.Metadata, inv.Status, inv.CreatedAt, inv.UpdatedAt,
		inv.CreatedBy, inv.UpdatedBy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ierr.WithError(err).
				WithHint("An invoice with this identifier already exists").
				WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND status != $2`,
		id, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	q := r.db.Querier(ctx)
	err := q.GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE stripe_payment_intent_id = $1 AND status != $2`,
		paymentIntentID, types.StatusDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("No invoice is linked to this payment intent").
				WithReportableDetails(map[string]any{"payment_intent_id": paymentIntentID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice by payment intent").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.Querier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE invoices
		SET customer_name = $2, customer_email = $3, description = $4,
			stripe_payment_intent_id = $5, metadata = $6,
			updated_at = $7, updated_by = $8
		WHERE id = $1 AND status != $9`,
		inv.ID, inv.CustomerName, inv.CustomerEmail, inv.Description,
		inv.StripePaymentIntentID, inv.Metadata,
		time.Now().UTC(), types.GetUserID(ctx), types.StatusDeleted,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// MarkPaid is a conditional transition: the WHERE clause only matches
// when the invoice is still unpaid, so a concurrent or replayed call
// affects zero rows and reports false instead of double-paying.
func (r *invoiceRepository) MarkPaid(ctx context.Context, id string, paymentIntentID string) (bool, error) {
	q := r.db.Querier(ctx)
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE invoices
		SET invoice_status = $3, stripe_payment_intent_id = $4, paid_at = $5,
			updated_at = $5, updated_by = $6
		WHERE id = $1 AND invoice_status = $2 AND status != $7`,
		id, types.InvoiceStatusUnpaid, types.InvoiceStatusPaid, paymentIntentID,
		now, types.GetUserID(ctx), types.StatusDeleted,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to mark invoice paid").
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

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	conditions, args := invoiceFilterConditions(filter)
	query += " WHERE " + conditions
	query += fmt.Sprintf(" ORDER BY %s %s", sortColumn(filter.GetSort()), sortOrder(filter.GetOrder()))
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	invoices := make([]*invoice.Invoice, 0)
	q := r.db.Querier(ctx)
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}

	conditions, args := invoiceFilterConditions(filter)
	var count int
	q := r.db.Querier(ctx)
	if err := q.GetContext(ctx, &count, "SELECT COUNT(*) FROM invoices WHERE "+conditions, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	q := r.db.Querier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE invoices
		SET status = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND status != $2`,
		id, types.StatusDeleted, time.Now().UTC(), types.GetUserID(ctx),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete invoice").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func invoiceFilterConditions(filter *types.InvoiceFilter) (string, []interface{}) {
	conditions := "status != $1"
	args := []interface{}{types.StatusDeleted}

	if len(filter.InvoiceIDs) > 0 {
		args = append(args, pq.Array(filter.InvoiceIDs))
		conditions += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	if filter.InvoiceStatus != nil {
		args = append(args, *filter.InvoiceStatus)
		conditions += fmt.Sprintf(" AND invoice_status = $%d", len(args))
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

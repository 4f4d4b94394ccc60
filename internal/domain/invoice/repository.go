package invoice

import (
	"context"

	"github.com/covionstudio/billing/internal/types"
)

// Repository defines the interface for invoice persistence
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	// MarkPaid transitions the invoice from unpaid to paid and records
	// the payment intent that settled it. It reports whether this call
	// performed the transition; false means the invoice was already
	// out of the unpaid state and nothing was written.
	MarkPaid(ctx context.Context, id string, paymentIntentID string) (bool, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
	Delete(ctx context.Context, id string) error
}

package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/covionstudio/billing/internal/types"
)

// Invoice is the billing document a customer pays against. AmountDue
// is stored in major units of Currency (e.g. 12.50 USD); the wire
// format for payment providers converts to minor units at the edge.
type Invoice struct {
	ID                    string               `db:"id" json:"id"`
	InvoiceNumber         string               `db:"invoice_number" json:"invoice_number"`
	CustomerName          string               `db:"customer_name" json:"customer_name"`
	CustomerEmail         string               `db:"customer_email" json:"customer_email"`
	Currency              string               `db:"currency" json:"currency"`
	AmountDue             decimal.Decimal      `db:"amount_due" json:"amount_due"`
	Description           string               `db:"description" json:"description"`
	InvoiceStatus         types.InvoiceStatus  `db:"invoice_status" json:"invoice_status"`
	StripePaymentIntentID *string              `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	PaidAt                *time.Time           `db:"paid_at" json:"paid_at,omitempty"`
	Metadata              types.Metadata       `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// IsPayable reports whether a payment intent may be created for the
// invoice in its current state.
func (i *Invoice) IsPayable() bool {
	return i.InvoiceStatus == types.InvoiceStatusUnpaid
}

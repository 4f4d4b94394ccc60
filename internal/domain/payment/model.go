package payment

import (
	"github.com/shopspring/decimal"

	"github.com/covionstudio/billing/internal/types"
)

// Payment records one reconciled payment attempt against an invoice.
// Exactly one completed row may exist per (invoice, payment intent)
// pair; the idempotency key enforces that across retries.
type Payment struct {
	ID                    string                  `db:"id" json:"id"`
	IdempotencyKey        string                  `db:"idempotency_key" json:"idempotency_key"`
	InvoiceID             string                  `db:"invoice_id" json:"invoice_id"`
	Amount                decimal.Decimal         `db:"amount" json:"amount"`
	Currency              string                  `db:"currency" json:"currency"`
	PaymentMethodType     types.PaymentMethodType `db:"payment_method_type" json:"payment_method_type"`
	PaymentStatus         types.PaymentStatus     `db:"payment_status" json:"payment_status"`
	StripePaymentIntentID string                  `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	FailureReason         *string                 `db:"failure_reason" json:"failure_reason,omitempty"`
	Metadata              types.Metadata          `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

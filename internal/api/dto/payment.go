package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/covionstudio/billing/internal/domain/payment"
	"github.com/covionstudio/billing/internal/types"
)

// PaymentResponse is the API shape of a reconciled payment
type PaymentResponse struct {
	ID                    string                  `json:"id"`
	InvoiceID             string                  `json:"invoice_id"`
	Amount                decimal.Decimal         `json:"amount"`
	Currency              string                  `json:"currency"`
	PaymentMethodType     types.PaymentMethodType `json:"payment_method_type"`
	PaymentStatus         types.PaymentStatus     `json:"payment_status"`
	StripePaymentIntentID string                  `json:"stripe_payment_intent_id"`
	FailureReason         *string                 `json:"failure_reason,omitempty"`
	CreatedAt             time.Time               `json:"created_at"`
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                    p.ID,
		InvoiceID:             p.InvoiceID,
		Amount:                p.Amount,
		Currency:              p.Currency,
		PaymentMethodType:     p.PaymentMethodType,
		PaymentStatus:         p.PaymentStatus,
		StripePaymentIntentID: p.StripePaymentIntentID,
		FailureReason:         p.FailureReason,
		CreatedAt:             p.CreatedAt,
	}
}

// ListPaymentsResponse wraps a page of payments
type ListPaymentsResponse struct {
	Items      []*PaymentResponse       `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// ReconciliationResponse reports the outcome of reconciling an invoice
type ReconciliationResponse struct {
	Invoice *InvoiceResponse `json:"invoice"`
	Payment *PaymentResponse `json:"payment,omitempty"`
	// AlreadyReconciled is true when the call found nothing to do
	// because an earlier reconciliation already settled the invoice.
	AlreadyReconciled bool `json:"already_reconciled"`
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Received bool   `json:"received"`
	Handled  bool   `json:"handled"`
	EventID  string `json:"event_id,omitempty"`
}

package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/covionstudio/billing/internal/domain/invoice"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/types"
	"github.com/covionstudio/billing/internal/validator"
)

// CreateInvoiceRequest creates an invoice. AmountDue is in major units
// of Currency ("12.50" for $12.50).
type CreateInvoiceRequest struct {
	CustomerName  string            `json:"customer_name" validate:"required"`
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
	Currency      string            `json:"currency" validate:"required,len=3"`
	AmountDue     decimal.Decimal   `json:"amount_due" validate:"required"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.AmountDue.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("amount_due must be positive").
			WithHint("Invoice amount must be greater than zero").
			WithReportableDetails(map[string]any{"amount_due": r.AmountDue}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	return &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber: types.GenerateInvoiceNumber(),
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		Currency:      r.Currency,
		AmountDue:     r.AmountDue,
		Description:   r.Description,
		InvoiceStatus: types.InvoiceStatusUnpaid,
		Metadata:      r.Metadata,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// CreateInvoicePaymentIntentRequest creates a payment intent for an
// invoice. Amount is optional and in the smallest currency unit; when
// present it must equal the invoice's amount due.
type CreateInvoicePaymentIntentRequest struct {
	Amount *int64 `json:"amount,omitempty" validate:"omitempty,min=1"`
}

// ReconcileInvoiceRequest triggers reconciliation of an invoice against
// its payment intent. PaymentIntentID is optional; when omitted the
// intent already linked to the invoice is used.
type ReconcileInvoiceRequest struct {
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`
}

// InvoiceResponse is the API shape of an invoice
type InvoiceResponse struct {
	ID                    string              `json:"id"`
	InvoiceNumber         string              `json:"invoice_number"`
	CustomerName          string              `json:"customer_name"`
	CustomerEmail         string              `json:"customer_email"`
	Currency              string              `json:"currency"`
	AmountDue             decimal.Decimal     `json:"amount_due"`
	Description           string              `json:"description,omitempty"`
	InvoiceStatus         types.InvoiceStatus `json:"invoice_status"`
	StripePaymentIntentID *string             `json:"stripe_payment_intent_id,omitempty"`
	PaidAt                *time.Time          `json:"paid_at,omitempty"`
	Metadata              types.Metadata      `json:"metadata,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:                    inv.ID,
		InvoiceNumber:         inv.InvoiceNumber,
		CustomerName:          inv.CustomerName,
		CustomerEmail:         inv.CustomerEmail,
		Currency:              inv.Currency,
		AmountDue:             inv.AmountDue,
		Description:           inv.Description,
		InvoiceStatus:         inv.InvoiceStatus,
		StripePaymentIntentID: inv.StripePaymentIntentID,
		PaidAt:                inv.PaidAt,
		Metadata:              inv.Metadata,
		CreatedAt:             inv.CreatedAt,
		UpdatedAt:             inv.UpdatedAt,
	}
}

// ListInvoicesResponse wraps a page of invoices
type ListInvoicesResponse struct {
	Items      []*InvoiceResponse       `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

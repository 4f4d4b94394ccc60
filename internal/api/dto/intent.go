package dto

import (
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/validator"
)

// MinChargeAmount is the smallest charge Stripe accepts, in the
// smallest currency unit.
const MinChargeAmount = 50

// DefaultCurrency is used when a standalone intent omits the currency.
const DefaultCurrency = "usd"

// CreatePaymentIntentRequest creates a standalone payment intent.
// Amount is in the smallest currency unit (cents for USD). Currency
// defaults to usd when omitted.
type CreatePaymentIntentRequest struct {
	Amount   int64             `json:"amount" validate:"required"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (r *CreatePaymentIntentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Amount < MinChargeAmount {
		return ierr.NewError("amount below minimum charge").
			WithHintf("Amount must be at least %d in the smallest currency unit", MinChargeAmount).
			WithReportableDetails(map[string]any{
				"amount":  r.Amount,
				"minimum": MinChargeAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentIntentResponse is returned from intent creation; ClientSecret
// is what the frontend hands to Stripe.js to confirm the payment.
type PaymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// PaymentsConfigResponse exposes the publishable key to the frontend
type PaymentsConfigResponse struct {
	PublishableKey string `json:"publishable_key"`
}

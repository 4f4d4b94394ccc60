package stripe

import (
	"context"
)

// PaymentIntent is the provider-neutral view of a Stripe payment
// intent. Amount is in the smallest currency unit, as Stripe reports
// it.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Succeeded reports whether the intent reached its terminal success
// state.
func (pi *PaymentIntent) Succeeded() bool {
	return pi.Status == "succeeded"
}

// CreateIntentRequest carries the inputs for creating a payment intent
type CreateIntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Event is a verified webhook delivery reduced to the fields the
// dispatcher needs.
type Event struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
	FailureReason string
}

// Gateway is the payment-processor surface the services depend on.
// The production implementation talks to Stripe; tests substitute a
// fake.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	VerifyWebhookEvent(payload []byte, signature string) (*Event, error)
	PublishableKey() string
	IsConfigured() bool
}

package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"

	ierr "github.com/covionstudio/billing/internal/errors"
)

// CreatePaymentIntent creates a payment intent with automatic payment
// methods enabled so the frontend can render whatever Stripe offers.
func (c *Client) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	if !c.IsConfigured() {
		return nil, ierr.NewError("stripe is not configured").
			WithHint("Payment processing is not configured on this server").
			Mark(ierr.ErrIntegration)
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.stripeClient.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe payment intent",
			"amount", req.Amount,
			"currency", req.Currency,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("Failed to create payment intent with Stripe").
			Mark(ierr.ErrIntegration)
	}

	c.logger.Infow("created stripe payment intent",
		"payment_intent_id", pi.ID,
		"amount", pi.Amount,
		"currency", pi.Currency,
	)

	return fromStripeIntent(pi), nil
}

// GetPaymentIntent retrieves the current state of a payment intent
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if !c.IsConfigured() {
		return nil, ierr.NewError("stripe is not configured").
			WithHint("Payment processing is not configured on this server").
			Mark(ierr.ErrIntegration)
	}

	pi, err := c.stripeClient.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to retrieve payment intent %s from Stripe", id).
			Mark(ierr.ErrIntegration)
	}
	return fromStripeIntent(pi), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

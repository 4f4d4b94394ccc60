package stripe

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/types"
)

// VerifyWebhookEvent checks the Stripe-Signature header against the
// raw request body and, for payment intent events, pulls the intent
// out of the verified payload. Verification must run on the raw bytes;
// any re-serialization would break the signature.
func (c *Client) VerifyWebhookEvent(payload []byte, signature string) (*Event, error) {
	if !c.cfg.Stripe.CanVerifyWebhooks() {
		return nil, ierr.NewError("webhook secret is not configured").
			WithHint("Webhook verification is not configured on this server").
			Mark(ierr.ErrIntegration)
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		c.cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied)
	}

	event := &Event{
		ID:   stripeEvent.ID,
		Type: string(stripeEvent.Type),
	}

	if types.WebhookEventType(event.Type).IsHandled() {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(stripeEvent.Data.Raw, &pi); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse payment intent from webhook payload").
				Mark(ierr.ErrIntegration)
		}
		event.PaymentIntent = fromStripeIntent(&pi)
		if pi.LastPaymentError != nil {
			event.FailureReason = pi.LastPaymentError.Msg
		}
	}

	return event, nil
}

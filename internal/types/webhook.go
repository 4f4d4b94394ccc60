package types

// WebhookEventType enumerates the Stripe event types the webhook
// endpoint acts on. Anything else is acknowledged and ignored.
type WebhookEventType string

const (
	WebhookEventTypePaymentIntentSucceeded WebhookEventType = "payment_intent.succeeded"
	WebhookEventTypePaymentIntentFailed    WebhookEventType = "payment_intent.payment_failed"
)

func (t WebhookEventType) String() string {
	return string(t)
}

// IsHandled reports whether the event type has a dispatch path.
func (t WebhookEventType) IsHandled() bool {
	switch t {
	case WebhookEventTypePaymentIntentSucceeded, WebhookEventTypePaymentIntentFailed:
		return true
	default:
		return false
	}
}

package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/integration/stripe"
)

// FakeStripeGateway implements stripe.Gateway for tests. Created
// intents start in requires_payment_method; tests move them with
// SucceedIntent or set up webhook deliveries with QueueEvent.
type FakeStripeGateway struct {
	mu      sync.Mutex
	intents map[string]*stripe.PaymentIntent
	events  map[string]*stripe.Event
	seq     int

	// CreateErr forces CreatePaymentIntent to fail
	CreateErr error
}

func NewFakeStripeGateway() *FakeStripeGateway {
	return &FakeStripeGateway{
		intents: make(map[string]*stripe.PaymentIntent),
		events:  make(map[string]*stripe.Event),
	}
}

func (g *FakeStripeGateway) CreatePaymentIntent(ctx context.Context, req stripe.CreateIntentRequest) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CreateErr != nil {
		return nil, g.CreateErr
	}

	g.seq++
	pi := &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%04d", g.seq),
		ClientSecret: fmt.Sprintf("pi_test_%04d_secret", g.seq),
		Status:       "requires_payment_method",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     req.Metadata,
	}
	g.intents[pi.ID] = pi
	cp := *pi
	return &cp, nil
}

func (g *FakeStripeGateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pi, ok := g.intents[id]
	if !ok {
		return nil, ierr.NewError("no such payment intent").
			WithHintf("Failed to retrieve payment intent %s from Stripe", id).
			Mark(ierr.ErrIntegration)
	}
	cp := *pi
	return &cp, nil
}

// VerifyWebhookEvent treats the payload as an event ID queued via
// QueueEvent and the signature "valid" as the only accepted signature.
func (g *FakeStripeGateway) VerifyWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if signature != "valid" {
		return nil, ierr.NewError("signature verification failed").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied)
	}

	event, ok := g.events[string(payload)]
	if !ok {
		return nil, ierr.NewError("unknown event payload").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrPermissionDenied)
	}
	cp := *event
	return &cp, nil
}

func (g *FakeStripeGateway) PublishableKey() string {
	return "pk_test_fake"
}

func (g *FakeStripeGateway) IsConfigured() bool {
	return true
}

// SucceedIntent moves an intent to succeeded
func (g *FakeStripeGateway) SucceedIntent(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pi, ok := g.intents[id]; ok {
		pi.Status = "succeeded"
	}
}

// SetIntentAmount overrides the amount Stripe reports for an intent
func (g *FakeStripeGateway) SetIntentAmount(id string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pi, ok := g.intents[id]; ok {
		pi.Amount = amount
	}
}

// QueueEvent registers a webhook event retrievable with the given
// payload key via VerifyWebhookEvent.
func (g *FakeStripeGateway) QueueEvent(payloadKey string, event *stripe.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events[payloadKey] = event
}

// Intent returns the stored intent for assertions
func (g *FakeStripeGateway) Intent(id string) *stripe.PaymentIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pi, ok := g.intents[id]; ok {
		cp := *pi
		return &cp
	}
	return nil
}

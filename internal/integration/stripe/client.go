package stripe

import (
	"github.com/stripe/stripe-go/v82"

	"github.com/covionstudio/billing/internal/config"
	"github.com/covionstudio/billing/internal/logger"
)

// Client implements Gateway against the Stripe API
type Client struct {
	stripeClient *stripe.Client
	cfg          *config.Configuration
	logger       *logger.Logger
}

// NewClient creates the Stripe-backed gateway. A missing secret key is
// not an error at construction time; individual calls fail with a
// configuration error so the rest of the API keeps serving.
func NewClient(cfg *config.Configuration, log *logger.Logger) Gateway {
	var sc *stripe.Client
	if cfg.Stripe.IsConfigured() {
		sc = stripe.NewClient(cfg.Stripe.SecretKey)
	} else {
		log.Warnw("stripe secret key not configured, payment endpoints will be unavailable")
	}

	return &Client{
		stripeClient: sc,
		cfg:          cfg,
		logger:       log,
	}
}

// IsConfigured reports whether API calls to Stripe can be made
func (c *Client) IsConfigured() bool {
	return c.stripeClient != nil
}

// PublishableKey returns the client-side key for Stripe.js
func (c *Client) PublishableKey() string {
	return c.cfg.Stripe.PublishableKey
}

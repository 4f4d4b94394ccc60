package service

import (
	"context"

	"github.com/covionstudio/billing/internal/cache"
	"github.com/covionstudio/billing/internal/config"
	"github.com/covionstudio/billing/internal/domain/invoice"
	"github.com/covionstudio/billing/internal/domain/payment"
	"github.com/covionstudio/billing/internal/domain/webhookevent"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/logger"
)

// DBTransactor runs fn atomically. The postgres DB implements it.
type DBTransactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ServiceParams bundles the shared dependencies each service needs
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// DB may be nil in tests; WithinTx then runs the work without a
	// wrapping transaction.
	DB DBTransactor

	InvoiceRepo      invoice.Repository
	PaymentRepo      payment.Repository
	WebhookEventRepo webhookevent.Repository

	StripeGateway  stripe.Gateway
	IdempotencyGen idempotency.Generator
	ReplayCache    *cache.Cache
}

// WithinTx runs fn inside a transaction when a DB is wired
func (p ServiceParams) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.DB == nil {
		return fn(ctx)
	}
	return p.DB.WithTx(ctx, fn)
}

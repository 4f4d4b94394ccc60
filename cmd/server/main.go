package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/covionstudio/billing/internal/api"
	v1 "github.com/covionstudio/billing/internal/api/v1"
	"github.com/covionstudio/billing/internal/cache"
	"github.com/covionstudio/billing/internal/config"
	"github.com/covionstudio/billing/internal/domain/invoice"
	"github.com/covionstudio/billing/internal/domain/payment"
	"github.com/covionstudio/billing/internal/domain/webhookevent"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/postgres"
	repo "github.com/covionstudio/billing/internal/repository/postgres"
	"github.com/covionstudio/billing/internal/service"
	"github.com/covionstudio/billing/internal/types"
)

// webhookReplayTTL is how long processed deliveries stay in the
// in-process cache; the webhook_events table covers anything older.
const webhookReplayTTL = 24 * time.Hour

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			postgres.NewDB,
			repo.NewInvoiceRepository,
			repo.NewPaymentRepository,
			repo.NewWebhookEventRepository,
			stripe.NewClient,
			idempotency.NewGenerator,
			newReplayCache,
			newServiceParams,
			service.NewInvoiceService,
			service.NewPaymentService,
			service.NewReconciliationService,
			v1.NewHealthHandler,
			v1.NewInvoiceHandler,
			v1.NewPaymentHandler,
			v1.NewWebhookHandler,
			newHandlers,
			newRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newReplayCache() *cache.Cache {
	return cache.New(webhookReplayTTL)
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	db *postgres.DB,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	webhookEventRepo webhookevent.Repository,
	gateway stripe.Gateway,
	gen idempotency.Generator,
	replayCache *cache.Cache,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		InvoiceRepo:      invoiceRepo,
		PaymentRepo:      paymentRepo,
		WebhookEventRepo: webhookEventRepo,
		StripeGateway:    gateway,
		IdempotencyGen:   gen,
		ReplayCache:      replayCache,
	}
}

func newHandlers(
	health *v1.HealthHandler,
	invoiceHandler *v1.InvoiceHandler,
	paymentHandler *v1.PaymentHandler,
	webhookHandler *v1.WebhookHandler,
) api.Handlers {
	return api.Handlers{
		Health:  health,
		Invoice: invoiceHandler,
		Payment: paymentHandler,
		Webhook: webhookHandler,
	}
}

func newRouter(cfg *config.Configuration, handlers api.Handlers, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting server", "address", cfg.Server.Address)
				if err := router.Run(cfg.Server.Address); err != nil {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down server")
			return db.Close()
		},
	})
}

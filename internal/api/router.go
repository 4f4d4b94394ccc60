package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/covionstudio/billing/internal/api/v1"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/rest/middleware"
)

// Handlers groups the route handlers the router wires up
type Handlers struct {
	Health  *v1.HealthHandler
	Invoice *v1.InvoiceHandler
	Payment *v1.PaymentHandler
	Webhook *v1.WebhookHandler
}

// NewRouter builds the gin engine with all routes and middleware
func NewRouter(handlers Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware(),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", handlers.Health.Health)

	apiV1 := router.Group("/v1")
	{
		invoices := apiV1.Group("/invoices")
		{
			invoices.POST("", handlers.Invoice.CreateInvoice)
			invoices.GET("", handlers.Invoice.ListInvoices)
			invoices.GET("/:id", handlers.Invoice.GetInvoice)
			invoices.POST("/:id/payment-intent", handlers.Invoice.CreatePaymentIntent)
			invoices.POST("/:id/reconcile", handlers.Invoice.ReconcileInvoice)
		}

		payments := apiV1.Group("/payments")
		{
			payments.GET("", handlers.Payment.ListPayments)
			payments.GET("/config", handlers.Payment.GetPaymentsConfig)
			payments.GET("/:id", handlers.Payment.GetPayment)
			payments.POST("/intent", handlers.Payment.CreatePaymentIntent)
		}

		// Webhook deliveries skip the usual request parsing; Stripe
		// signs the raw body.
		webhooks := apiV1.Group("/webhooks")
		{
			webhooks.POST("/stripe", handlers.Webhook.HandleStripeWebhook)
		}
	}

	return router
}

package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/service"
)

// Stripe signs the raw request body; the handler reads it unparsed and
// leaves all verification to the service.
type WebhookHandler struct {
	service service.ReconciliationService
	logger  *logger.Logger
}

func NewWebhookHandler(svc service.ReconciliationService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: svc, logger: log}
}

// HandleStripeWebhook godoc
// @Summary Handle a Stripe webhook delivery
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	const maxBodyBytes = 65536
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.Error(ierr.NewError("missing Stripe-Signature header").
			WithHint("Webhook deliveries must be signed").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	resp, err := h.service.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

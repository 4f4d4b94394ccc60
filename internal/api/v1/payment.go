package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/covionstudio/billing/internal/api/dto"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/service"
	"github.com/covionstudio/billing/internal/types"
)

type PaymentHandler struct {
	service service.PaymentService
	logger  *logger.Logger
}

func NewPaymentHandler(svc service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: log}
}

// CreatePaymentIntent godoc
// @Summary Create a payment intent
// @Description Create a Stripe payment intent for an arbitrary amount
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentIntentRequest true "Payment intent request"
// @Success 200 {object} dto.PaymentIntentResponse
// @Router /payments/intent [post]
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePaymentIntent(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPaymentsConfig godoc
// @Summary Get payments configuration
// @Description Get the publishable key for the payments frontend
// @Tags payments
// @Produce json
// @Success 200 {object} dto.PaymentsConfigResponse
// @Router /payments/config [get]
func (h *PaymentHandler) GetPaymentsConfig(c *gin.Context) {
	resp, err := h.service.GetPaymentsConfig(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPayment godoc
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("payment ID is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListPayments godoc
// @Summary List payments
// @Tags payments
// @Produce json
// @Param filter query types.PaymentFilter false "Filter"
// @Success 200 {object} dto.ListPaymentsResponse
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var filter types.PaymentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.service.ListPayments(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

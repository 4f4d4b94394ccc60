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

type InvoiceHandler struct {
	invoiceService        service.InvoiceService
	reconciliationService service.ReconciliationService
	logger                *logger.Logger
}

func NewInvoiceHandler(
	invoiceSvc service.InvoiceService,
	reconciliationSvc service.ReconciliationService,
	log *logger.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:        invoiceSvc,
		reconciliationService: reconciliationSvc,
		logger:                log,
	}
}

// CreateInvoice godoc
// @Summary Create an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body dto.CreateInvoiceRequest true "Invoice request"
// @Success 201 {object} dto.InvoiceResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetInvoice godoc
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListInvoices godoc
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePaymentIntent godoc
// @Summary Create a payment intent for an invoice
// @Description Create a Stripe payment intent for the invoice's amount due
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.CreateInvoicePaymentIntentRequest false "Payment intent request"
// @Success 200 {object} dto.PaymentIntentResponse
// @Router /invoices/{id}/payment-intent [post]
func (h *InvoiceHandler) CreatePaymentIntent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.CreateInvoicePaymentIntentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request payload").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.invoiceService.CreatePaymentIntent(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReconcileInvoice godoc
// @Summary Reconcile an invoice
// @Description Verify the invoice's payment intent with Stripe and settle the invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.ReconcileInvoiceRequest false "Reconcile request"
// @Success 200 {object} dto.ReconciliationResponse
// @Router /invoices/{id}/reconcile [post]
func (h *InvoiceHandler) ReconcileInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.ReconcileInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request payload").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.reconciliationService.ReconcileInvoice(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/covionstudio/billing/internal/api/dto"
	v1 "github.com/covionstudio/billing/internal/api/v1"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/service"
	"github.com/covionstudio/billing/internal/testutil"
	"github.com/covionstudio/billing/internal/types"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		InvoiceRepo:      stores.InvoiceRepo,
		PaymentRepo:      stores.PaymentRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		StripeGateway:    s.GetStripe(),
		IdempotencyGen:   idempotency.NewGenerator(),
		ReplayCache:      s.GetReplayCache(),
	}

	s.router = NewRouter(Handlers{
		Health: v1.NewHealthHandler(),
		Invoice: v1.NewInvoiceHandler(
			service.NewInvoiceService(params),
			service.NewReconciliationService(params),
			s.GetLogger(),
		),
		Payment: v1.NewPaymentHandler(service.NewPaymentService(params), s.GetLogger()),
		Webhook: v1.NewWebhookHandler(service.NewReconciliationService(params), s.GetLogger()),
	}, s.GetLogger())
}

func (s *RouterSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) createInvoice(amount string) *dto.InvoiceResponse {
	w := s.do(http.MethodPost, "/v1/invoices", map[string]any{
		"customer_name":  "Acme Corp",
		"customer_email": "billing@acme.test",
		"currency":       "usd",
		"amount_due":     amount,
	}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.InvoiceResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestRequestIDHeader() {
	w := s.do(http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "req-42"})
	s.Equal("req-42", w.Header().Get("X-Request-ID"))

	w = s.do(http.MethodGet, "/health", nil, nil)
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestCreateInvoiceAndIntent() {
	inv := s.createInvoice("99.00")

	w := s.do(http.MethodPost, fmt.Sprintf("/v1/invoices/%s/payment-intent", inv.ID), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.PaymentIntentResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.NotEmpty(resp.ClientSecret)
	s.Equal(int64(9900), resp.Amount)
}

func (s *RouterSuite) TestCreateInvoiceValidationError() {
	w := s.do(http.MethodPost, "/v1/invoices", map[string]any{
		"customer_name": "Acme Corp",
		"currency":      "usd",
		"amount_due":    "10",
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"success":false`)
}

func (s *RouterSuite) TestStandaloneIntentBelowMinimum() {
	w := s.do(http.MethodPost, "/v1/payments/intent", map[string]any{
		"amount":   49,
		"currency": "usd",
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestStandaloneIntentAtMinimum() {
	w := s.do(http.MethodPost, "/v1/payments/intent", map[string]any{
		"amount":   50,
		"currency": "usd",
	}, nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *RouterSuite) TestStandaloneIntentWithoutCurrency() {
	w := s.do(http.MethodPost, "/v1/payments/intent", map[string]any{
		"amount": 50,
	}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.PaymentIntentResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("usd", resp.Currency)
}

func (s *RouterSuite) TestReconcileNotFound() {
	w := s.do(http.MethodPost, "/v1/invoices/inv_missing/reconcile", nil, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestReconcilePendingIntentFails() {
	inv := s.createInvoice("99.00")
	w := s.do(http.MethodPost, fmt.Sprintf("/v1/invoices/%s/payment-intent", inv.ID), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/v1/invoices/%s/reconcile", inv.ID), nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	// The invoice must be untouched.
	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusUnpaid, stored.InvoiceStatus)
}

func (s *RouterSuite) TestWebhookMissingSignature() {
	w := s.do(http.MethodPost, "/v1/webhooks/stripe", map[string]any{"id": "evt_1"}, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestGetPaymentsConfig() {
	w := s.do(http.MethodGet, "/v1/payments/config", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.PaymentsConfigResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("pk_test_fake", resp.PublishableKey)
}

func (s *RouterSuite) TestListInvoices() {
	s.createInvoice("10.00")
	s.createInvoice("20.00")

	w := s.do(http.MethodGet, "/v1/invoices?limit=1", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.ListInvoicesResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Items, 1)
	s.Equal(2, resp.Pagination.Total)
}

package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/covionstudio/billing/internal/api/dto"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/testutil"
	"github.com/covionstudio/billing/internal/types"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(s.newParams())
}

func (s *InvoiceServiceSuite) newParams() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		InvoiceRepo:      stores.InvoiceRepo,
		PaymentRepo:      stores.PaymentRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		StripeGateway:    s.GetStripe(),
		IdempotencyGen:   idempotency.NewGenerator(),
		ReplayCache:      s.GetReplayCache(),
	}
}

func (s *InvoiceServiceSuite) createInvoice(amount string) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.test",
		Currency:      "usd",
		AmountDue:     decimal.RequireFromString(amount),
		Description:   "Website redesign",
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp := s.createInvoice("250.00")

	s.NotEmpty(resp.ID)
	s.Contains(resp.ID, "inv_")
	s.Contains(resp.InvoiceNumber, "INV-")
	s.Equal(types.InvoiceStatusUnpaid, resp.InvoiceStatus)
	s.True(resp.AmountDue.Equal(decimal.RequireFromString("250.00")))
	s.Nil(resp.StripePaymentIntentID)
	s.Nil(resp.PaidAt)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	testCases := []struct {
		name string
		req  *dto.CreateInvoiceRequest
	}{
		{
			name: "missing customer name",
			req: &dto.CreateInvoiceRequest{
				CustomerEmail: "billing@acme.test",
				Currency:      "usd",
				AmountDue:     decimal.RequireFromString("10"),
			},
		},
		{
			name: "invalid email",
			req: &dto.CreateInvoiceRequest{
				CustomerName:  "Acme Corp",
				CustomerEmail: "not-an-email",
				Currency:      "usd",
				AmountDue:     decimal.RequireFromString("10"),
			},
		},
		{
			name: "bad currency code",
			req: &dto.CreateInvoiceRequest{
				CustomerName:  "Acme Corp",
				CustomerEmail: "billing@acme.test",
				Currency:      "usdollar",
				AmountDue:     decimal.RequireFromString("10"),
			},
		},
		{
			name: "zero amount",
			req: &dto.CreateInvoiceRequest{
				CustomerName:  "Acme Corp",
				CustomerEmail: "billing@acme.test",
				Currency:      "usd",
				AmountDue:     decimal.Zero,
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.CreateInvoice(s.GetContext(), tc.req)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *InvoiceServiceSuite) TestGetInvoiceNotFound() {
	_, err := s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoicesByStatus() {
	s.createInvoice("100.00")
	s.createInvoice("200.00")

	filter := types.NewInvoiceFilter()
	unpaid := types.InvoiceStatusUnpaid
	filter.InvoiceStatus = &unpaid

	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(2, resp.Pagination.Total)

	paid := types.InvoiceStatusPaid
	filter.InvoiceStatus = &paid
	resp, err = s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 0)
}

func (s *InvoiceServiceSuite) TestCreatePaymentIntent() {
	inv := s.createInvoice("125.50")

	resp, err := s.service.CreatePaymentIntent(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)

	s.NotEmpty(resp.ID)
	s.NotEmpty(resp.ClientSecret)
	s.Equal(int64(12550), resp.Amount)
	s.Equal("usd", resp.Currency)

	// The intent must be linked back to the invoice.
	stored, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.StripePaymentIntentID)
	s.Equal(resp.ID, *stored.StripePaymentIntentID)

	// And the invoice ID travels in the intent metadata.
	pi := s.GetStripe().Intent(resp.ID)
	s.Require().NotNil(pi)
	s.Equal(inv.ID, pi.Metadata["invoice_id"])
}

func (s *InvoiceServiceSuite) TestCreatePaymentIntentBelowMinimum() {
	inv := s.createInvoice("0.49")

	_, err := s.service.CreatePaymentIntent(s.GetContext(), inv.ID, nil)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestCreatePaymentIntentAtMinimum() {
	inv := s.createInvoice("0.50")

	resp, err := s.service.CreatePaymentIntent(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)
	s.Equal(int64(50), resp.Amount)
}

func (s *InvoiceServiceSuite) TestCreatePaymentIntentAmountMismatch() {
	inv := s.createInvoice("125.50")

	wrong := int64(9999)
	_, err := s.service.CreatePaymentIntent(s.GetContext(), inv.ID, &dto.CreateInvoicePaymentIntentRequest{Amount: &wrong})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	right := int64(12550)
	resp, err := s.service.CreatePaymentIntent(s.GetContext(), inv.ID, &dto.CreateInvoicePaymentIntentRequest{Amount: &right})
	s.Require().NoError(err)
	s.Equal(int64(12550), resp.Amount)
}

func (s *InvoiceServiceSuite) TestCreatePaymentIntentPaidInvoice() {
	inv := s.createInvoice("100.00")

	applied, err := s.GetStores().InvoiceRepo.MarkPaid(s.GetContext(), inv.ID, "pi_existing")
	s.Require().NoError(err)
	s.Require().True(applied)

	_, err = s.service.CreatePaymentIntent(s.GetContext(), inv.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/covionstudio/billing/internal/api/dto"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/testutil"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PaymentService
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.service = NewPaymentService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		InvoiceRepo:      stores.InvoiceRepo,
		PaymentRepo:      stores.PaymentRepo,
		WebhookEventRepo: stores.WebhookEventRepo,
		StripeGateway:    s.GetStripe(),
		IdempotencyGen:   idempotency.NewGenerator(),
		ReplayCache:      s.GetReplayCache(),
	})
}

func (s *PaymentServiceSuite) TestCreatePaymentIntent() {
	resp, err := s.service.CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount:   2500,
		Currency: "usd",
		Metadata: map[string]string{"order": "ord_123"},
	})
	s.Require().NoError(err)

	s.NotEmpty(resp.ID)
	s.NotEmpty(resp.ClientSecret)
	s.Equal(int64(2500), resp.Amount)
	s.Equal("usd", resp.Currency)
}

func (s *PaymentServiceSuite) TestCreatePaymentIntentBelowMinimum() {
	_, err := s.service.CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount:   49,
		Currency: "usd",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestCreatePaymentIntentAtMinimum() {
	resp, err := s.service.CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount:   50,
		Currency: "usd",
	})
	s.Require().NoError(err)
	s.Equal(int64(50), resp.Amount)
}

func (s *PaymentServiceSuite) TestCreatePaymentIntentDefaultsCurrency() {
	resp, err := s.service.CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount: 50,
	})
	s.Require().NoError(err)
	s.Equal("usd", resp.Currency)
	s.Equal(int64(50), resp.Amount)
}

func (s *PaymentServiceSuite) TestCreatePaymentIntentBadCurrencyCode() {
	_, err := s.service.CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount:   2500,
		Currency: "us",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestGetPaymentsConfig() {
	resp, err := s.service.GetPaymentsConfig(s.GetContext())
	s.Require().NoError(err)
	s.Equal("pk_test_fake", resp.PublishableKey)
}

func (s *PaymentServiceSuite) TestGetPaymentNotFound() {
	_, err := s.service.GetPayment(s.GetContext(), "pay_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestListPaymentsEmpty() {
	resp, err := s.service.ListPayments(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Len(resp.Items, 0)
	s.Equal(0, resp.Pagination.Total)
}

package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/covionstudio/billing/internal/api/dto"
	"github.com/covionstudio/billing/internal/domain/invoice"
	"github.com/covionstudio/billing/internal/domain/payment"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/testutil"
	"github.com/covionstudio/billing/internal/types"
)

type ReconciliationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        ReconciliationService
	invoiceService InvoiceService
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.newParams()
	s.service = NewReconciliationService(params)
	s.invoiceService = NewInvoiceService(params)
}

func (s *ReconciliationServiceSuite) newParams() ServiceParams {
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

// invoiceWithIntent creates an unpaid invoice with a linked payment
// intent for the full amount due.
func (s *ReconciliationServiceSuite) invoiceWithIntent(amount string) (*dto.InvoiceResponse, string) {
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.test",
		Currency:      "usd",
		AmountDue:     decimal.RequireFromString(amount),
	})
	s.Require().NoError(err)

	pi, err := s.invoiceService.CreatePaymentIntent(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)
	return inv, pi.ID
}

func (s *ReconciliationServiceSuite) getInvoice(id string) *invoice.Invoice {
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return inv
}

func (s *ReconciliationServiceSuite) countPayments(invoiceID string) int {
	filter := types.NewNoLimitPaymentFilter()
	filter.InvoiceID = &invoiceID
	count, err := s.GetStores().PaymentRepo.Count(s.GetContext(), filter)
	s.Require().NoError(err)
	return count
}

func (s *ReconciliationServiceSuite) TestReconcileSucceededIntent() {
	inv, intentID := s.invoiceWithIntent("120.00")
	s.GetStripe().SucceedIntent(intentID)

	resp, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)

	s.False(resp.AlreadyReconciled)
	s.Equal(types.InvoiceStatusPaid, resp.Invoice.InvoiceStatus)
	s.NotNil(resp.Invoice.PaidAt)
	s.Require().NotNil(resp.Payment)
	s.Equal(types.PaymentStatusCompleted, resp.Payment.PaymentStatus)
	s.True(resp.Payment.Amount.Equal(decimal.RequireFromString("120.00")))
	s.Equal(intentID, resp.Payment.StripePaymentIntentID)
	s.Equal(1, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestReconcileTwiceKeepsOnePayment() {
	inv, intentID := s.invoiceWithIntent("75.00")
	s.GetStripe().SucceedIntent(intentID)

	first, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)
	s.False(first.AlreadyReconciled)

	second, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)
	s.True(second.AlreadyReconciled)
	s.Require().NotNil(second.Payment)
	s.Equal(first.Payment.ID, second.Payment.ID)

	s.Equal(1, s.countPayments(inv.ID))
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
}

func (s *ReconciliationServiceSuite) TestReconcilePendingIntent() {
	inv, _ := s.invoiceWithIntent("75.00")

	// Intent never moved past requires_payment_method.
	_, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	s.Equal(types.InvoiceStatusUnpaid, s.getInvoice(inv.ID).InvoiceStatus)
	s.Equal(0, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestReconcileAmountMismatch() {
	inv, intentID := s.invoiceWithIntent("75.00")
	s.GetStripe().SetIntentAmount(intentID, 9999)
	s.GetStripe().SucceedIntent(intentID)

	_, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	s.Equal(types.InvoiceStatusUnpaid, s.getInvoice(inv.ID).InvoiceStatus)
	s.Equal(0, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestReconcileWithoutIntent() {
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.test",
		Currency:      "usd",
		AmountDue:     decimal.RequireFromString("75.00"),
	})
	s.Require().NoError(err)

	_, err = s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *ReconciliationServiceSuite) queueSucceededEvent(eventID, intentID string) string {
	pi := s.GetStripe().Intent(intentID)
	s.Require().NotNil(pi)
	s.GetStripe().QueueEvent(eventID, &stripe.Event{
		ID:            eventID,
		Type:          string(types.WebhookEventTypePaymentIntentSucceeded),
		PaymentIntent: pi,
	})
	return eventID
}

func (s *ReconciliationServiceSuite) TestWebhookSucceededSettlesInvoice() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)
	payload := s.queueSucceededEvent("evt_001", intentID)

	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)

	s.True(resp.Received)
	s.True(resp.Handled)
	s.Equal("evt_001", resp.EventID)
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
	s.Equal(1, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestWebhookReplayedEventIsNoOp() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)
	payload := s.queueSucceededEvent("evt_replay", intentID)

	first, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(first.Handled)

	second, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(second.Received)
	s.False(second.Handled)

	s.Equal(1, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestWebhookReplayPastCacheWindow() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)
	payload := s.queueSucceededEvent("evt_old", intentID)

	first, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(first.Handled)

	// The cache entry is gone but the durable record still blocks the
	// replay.
	cacheKey := idempotency.NewGenerator().GenerateKey(idempotency.ScopeWebhook, map[string]interface{}{
		"event_id": "evt_old",
	})
	s.GetReplayCache().Delete(cacheKey)

	second, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.False(second.Handled)
	s.Equal(1, s.countPayments(inv.ID))
}

func (s *ReconciliationServiceSuite) TestWebhookBadSignature() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)
	payload := s.queueSucceededEvent("evt_sig", intentID)

	_, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "tampered")
	s.Error(err)

	// Nothing may change on a failed verification.
	s.Equal(types.InvoiceStatusUnpaid, s.getInvoice(inv.ID).InvoiceStatus)
	s.Equal(0, s.countPayments(inv.ID))

	processed, err := s.GetStores().WebhookEventRepo.IsProcessed(s.GetContext(), "evt_sig")
	s.Require().NoError(err)
	s.False(processed)
}

func (s *ReconciliationServiceSuite) TestWebhookFailedIntentRecordsFailure() {
	inv, intentID := s.invoiceWithIntent("60.00")
	pi := s.GetStripe().Intent(intentID)
	s.GetStripe().QueueEvent("evt_fail", &stripe.Event{
		ID:            "evt_fail",
		Type:          string(types.WebhookEventTypePaymentIntentFailed),
		PaymentIntent: pi,
		FailureReason: "card_declined",
	})

	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte("evt_fail"), "valid")
	s.Require().NoError(err)
	s.True(resp.Handled)

	// The invoice stays payable; only a failed payment row is added.
	s.Equal(types.InvoiceStatusUnpaid, s.getInvoice(inv.ID).InvoiceStatus)

	failed := types.PaymentStatusFailed
	filter := types.NewNoLimitPaymentFilter()
	filter.InvoiceID = &inv.ID
	filter.PaymentStatus = &failed
	payments, err := s.GetStores().PaymentRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Require().NotNil(payments[0].FailureReason)
	s.Equal("card_declined", *payments[0].FailureReason)
}

func (s *ReconciliationServiceSuite) TestWebhookFailedThenSucceeded() {
	inv, intentID := s.invoiceWithIntent("60.00")

	pi := s.GetStripe().Intent(intentID)
	s.GetStripe().QueueEvent("evt_f1", &stripe.Event{
		ID:            "evt_f1",
		Type:          string(types.WebhookEventTypePaymentIntentFailed),
		PaymentIntent: pi,
		FailureReason: "insufficient_funds",
	})
	_, err := s.service.ProcessWebhook(s.GetContext(), []byte("evt_f1"), "valid")
	s.Require().NoError(err)

	s.GetStripe().SucceedIntent(intentID)
	payload := s.queueSucceededEvent("evt_s1", intentID)
	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(resp.Handled)

	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
	s.Equal(2, s.countPayments(inv.ID))

	completed := types.PaymentStatusCompleted
	filter := types.NewNoLimitPaymentFilter()
	filter.InvoiceID = &inv.ID
	filter.PaymentStatus = &completed
	count, err := s.GetStores().PaymentRepo.Count(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ReconciliationServiceSuite) TestWebhookUnhandledEventType() {
	s.GetStripe().QueueEvent("evt_other", &stripe.Event{
		ID:   "evt_other",
		Type: "customer.created",
	})

	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte("evt_other"), "valid")
	s.Require().NoError(err)
	s.True(resp.Received)
	s.False(resp.Handled)
}

func (s *ReconciliationServiceSuite) TestWebhookIntentWithoutInvoice() {
	// A standalone intent created outside the invoice flow.
	standalone, err := NewPaymentService(s.newParams()).CreatePaymentIntent(s.GetContext(), &dto.CreatePaymentIntentRequest{
		Amount:   5000,
		Currency: "usd",
	})
	s.Require().NoError(err)
	s.GetStripe().SucceedIntent(standalone.ID)
	payload := s.queueSucceededEvent("evt_solo", standalone.ID)

	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(resp.Handled)
}

func (s *ReconciliationServiceSuite) TestWebhookSucceededAfterManualReconcile() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)

	_, err := s.service.ReconcileInvoice(s.GetContext(), inv.ID, nil)
	s.Require().NoError(err)

	// The webhook for the same intent arrives afterwards; the event is
	// new but the settlement is already in place.
	payload := s.queueSucceededEvent("evt_late", intentID)
	resp, err := s.service.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(resp.Handled)

	s.Equal(1, s.countPayments(inv.ID))
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
}

// contendedPaymentRepo misses the idempotency-key lookup a fixed number
// of times, replaying the window where a concurrent reconciliation
// commits between a delivery's existence check and its insert.
type contendedPaymentRepo struct {
	payment.Repository
	misses int
}

func (r *contendedPaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	if r.misses > 0 {
		r.misses--
		return nil, ierr.NewError("payment not found").Mark(ierr.ErrNotFound)
	}
	return r.Repository.GetByIdempotencyKey(ctx, key)
}

func (s *ReconciliationServiceSuite) TestWebhookLosesSettleRace() {
	inv, intentID := s.invoiceWithIntent("60.00")
	s.GetStripe().SucceedIntent(intentID)

	// A concurrent reconciliation already settled the invoice. This
	// delivery's existence check ran before that write landed, so its
	// insert hits the unique idempotency key and it must recover by
	// returning the winner's row instead of failing the delivery.
	key := idempotency.NewGenerator().GenerateKey(idempotency.ScopePayment, map[string]interface{}{
		"invoice_id":        inv.ID,
		"payment_intent_id": intentID,
	})
	winner := &payment.Payment{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey:        key,
		InvoiceID:             inv.ID,
		Amount:                decimal.RequireFromString("60.00"),
		Currency:              "usd",
		PaymentMethodType:     types.PaymentMethodTypeCard,
		PaymentStatus:         types.PaymentStatusCompleted,
		StripePaymentIntentID: intentID,
		BaseModel:             types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), winner))
	marked, err := s.GetStores().InvoiceRepo.MarkPaid(s.GetContext(), inv.ID, intentID)
	s.Require().NoError(err)
	s.Require().True(marked)

	params := s.newParams()
	params.PaymentRepo = &contendedPaymentRepo{Repository: params.PaymentRepo, misses: 1}
	svc := NewReconciliationService(params)

	payload := s.queueSucceededEvent("evt_race", intentID)
	resp, err := svc.ProcessWebhook(s.GetContext(), []byte(payload), "valid")
	s.Require().NoError(err)
	s.True(resp.Handled)

	s.Equal(1, s.countPayments(inv.ID))
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
}

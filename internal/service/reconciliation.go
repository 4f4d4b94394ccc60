package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/covionstudio/billing/internal/api/dto"
	"github.com/covionstudio/billing/internal/domain/invoice"
	"github.com/covionstudio/billing/internal/domain/payment"
	"github.com/covionstudio/billing/internal/domain/webhookevent"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/idempotency"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/types"
)

// ReconciliationService settles invoices against verified payment
// outcomes. It is the only writer of invoice_status and the only
// creator of payment rows, whether the trigger is an inbound webhook
// or an explicit reconcile call.
type ReconciliationService interface {
	// ReconcileInvoice verifies the invoice's payment intent with
	// Stripe and, if it succeeded for the right amount, records the
	// payment and marks the invoice paid. Safe to call repeatedly.
	ReconcileInvoice(ctx context.Context, invoiceID string, req *dto.ReconcileInvoiceRequest) (*dto.ReconciliationResponse, error)

	// ProcessWebhook verifies the delivery signature and dispatches
	// the event. Replayed event IDs are acknowledged without effect.
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type reconciliationService struct {
	ServiceParams
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{ServiceParams: params}
}

func (s *reconciliationService) ReconcileInvoice(ctx context.Context, invoiceID string, req *dto.ReconcileInvoiceRequest) (*dto.ReconciliationResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.InvoiceStatus == types.InvoiceStatusVoid {
		return nil, ierr.NewError("invoice is void").
			WithHintf("Invoice %s is void and cannot be reconciled", inv.InvoiceNumber).
			Mark(ierr.ErrInvalidOperation)
	}

	intentID := inv.StripePaymentIntentID
	if req != nil && req.PaymentIntentID != nil {
		intentID = req.PaymentIntentID
	}
	if intentID == nil || *intentID == "" {
		return nil, ierr.NewError("invoice has no payment intent").
			WithHint("Create a payment intent for the invoice before reconciling").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrInvalidOperation)
	}

	// Already settled: report the existing payment instead of failing,
	// so retried reconcile calls converge on the same answer.
	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return s.alreadyReconciled(ctx, inv, *intentID)
	}

	pi, err := s.StripeGateway.GetPaymentIntent(ctx, *intentID)
	if err != nil {
		return nil, err
	}

	if !pi.Succeeded() {
		return nil, ierr.NewError("payment intent has not succeeded").
			WithHintf("Payment intent %s is in state %s", pi.ID, pi.Status).
			WithReportableDetails(map[string]any{
				"payment_intent_id": pi.ID,
				"intent_status":     pi.Status,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.verifyAmount(inv, pi); err != nil {
		return nil, err
	}

	p, applied, err := s.settle(ctx, inv, pi)
	if err != nil {
		return nil, err
	}

	refreshed, err := s.InvoiceRepo.Get(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	return &dto.ReconciliationResponse{
		Invoice:           dto.NewInvoiceResponse(refreshed),
		Payment:           dto.NewPaymentResponse(p),
		AlreadyReconciled: !applied,
	}, nil
}

func (s *reconciliationService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	event, err := s.StripeGateway.VerifyWebhookEvent(payload, signature)
	if err != nil {
		return nil, err
	}

	if !types.WebhookEventType(event.Type).IsHandled() {
		s.Logger.Debugw("ignoring webhook event", "event_id", event.ID, "event_type", event.Type)
		return &dto.WebhookResponse{Received: true, Handled: false, EventID: event.ID}, nil
	}

	// Fast path for replays inside the cache retention window; the
	// durable check in recordEvent covers everything older.
	cacheKey := s.replayCacheKey(event.ID)
	if s.ReplayCache != nil && s.ReplayCache.Has(cacheKey) {
		s.Logger.Infow("skipping replayed webhook event", "event_id", event.ID)
		return &dto.WebhookResponse{Received: true, Handled: false, EventID: event.ID}, nil
	}

	var handled bool
	err = s.WithinTx(ctx, func(txCtx context.Context) error {
		first, err := s.recordEvent(txCtx, event)
		if err != nil {
			return err
		}
		if !first {
			s.Logger.Infow("skipping replayed webhook event", "event_id", event.ID)
			return nil
		}

		switch types.WebhookEventType(event.Type) {
		case types.WebhookEventTypePaymentIntentSucceeded:
			err = s.handleIntentSucceeded(txCtx, event)
		case types.WebhookEventTypePaymentIntentFailed:
			err = s.handleIntentFailed(txCtx, event)
		}
		if err != nil {
			return err
		}
		handled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.ReplayCache != nil {
		s.ReplayCache.Set(cacheKey, struct{}{})
	}

	return &dto.WebhookResponse{Received: true, Handled: handled, EventID: event.ID}, nil
}

// replayCacheKey scopes cache entries so webhook dedup never collides
// with other key spaces sharing a cache.
func (s *reconciliationService) replayCacheKey(eventID string) string {
	return s.IdempotencyGen.GenerateKey(idempotency.ScopeWebhook, map[string]interface{}{
		"event_id": eventID,
	})
}

func (s *reconciliationService) handleIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	pi := event.PaymentIntent
	inv, err := s.findInvoiceForIntent(ctx, pi)
	if err != nil {
		if ierr.IsNotFound(err) {
			// A standalone intent with no invoice attached; nothing to
			// settle.
			s.Logger.Infow("no invoice linked to payment intent",
				"event_id", event.ID,
				"payment_intent_id", pi.ID,
			)
			return nil
		}
		return err
	}

	if err := s.verifyAmount(inv, pi); err != nil {
		return err
	}

	_, _, err = s.settle(ctx, inv, pi)
	return err
}

func (s *reconciliationService) handleIntentFailed(ctx context.Context, event *stripe.Event) error {
	pi := event.PaymentIntent
	inv, err := s.findInvoiceForIntent(ctx, pi)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}

	// Failures never touch invoice_status; the invoice stays payable.
	key := s.IdempotencyGen.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
		"invoice_id":        inv.ID,
		"payment_intent_id": pi.ID,
		"event_id":          event.ID,
	})

	p := &payment.Payment{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey:        key,
		InvoiceID:             inv.ID,
		Amount:                types.MinorToMajor(pi.Amount, pi.Currency),
		Currency:              inv.Currency,
		PaymentMethodType:     types.PaymentMethodTypeCard,
		PaymentStatus:         types.PaymentStatusFailed,
		StripePaymentIntentID: pi.ID,
		FailureReason:         lo.ToPtr(event.FailureReason),
		BaseModel:             types.GetDefaultBaseModel(ctx),
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		if ierr.IsAlreadyExists(err) {
			return nil
		}
		return err
	}

	s.Logger.Infow("recorded failed payment",
		"invoice_id", inv.ID,
		"payment_intent_id", pi.ID,
		"failure_reason", event.FailureReason,
	)
	return nil
}

// settle atomically records the completed payment and flips the
// invoice to paid. applied is false when another reconciliation got
// there first.
func (s *reconciliationService) settle(ctx context.Context, inv *invoice.Invoice, pi *stripe.PaymentIntent) (*payment.Payment, bool, error) {
	key := s.IdempotencyGen.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
		"invoice_id":        inv.ID,
		"payment_intent_id": pi.ID,
	})

	if existing, err := s.PaymentRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return existing, false, nil
	} else if !ierr.IsNotFound(err) {
		return nil, false, err
	}

	p := &payment.Payment{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey:        key,
		InvoiceID:             inv.ID,
		Amount:                types.MinorToMajor(pi.Amount, pi.Currency),
		Currency:              inv.Currency,
		PaymentMethodType:     types.PaymentMethodTypeCard,
		PaymentStatus:         types.PaymentStatusCompleted,
		StripePaymentIntentID: pi.ID,
		BaseModel:             types.GetDefaultBaseModel(ctx),
	}

	err := s.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.PaymentRepo.Create(txCtx, p); err != nil {
			return err
		}
		if _, err := s.InvoiceRepo.MarkPaid(txCtx, inv.ID, pi.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// Lost a race with a concurrent reconciliation. The nested
		// transaction rolled back to its savepoint, so the lookup below
		// still works when an outer transaction is open; the winner's
		// payment row is the answer.
		if ierr.IsAlreadyExists(err) {
			existing, getErr := s.PaymentRepo.GetByIdempotencyKey(ctx, key)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.Logger.Infow("invoice reconciled",
		"invoice_id", inv.ID,
		"payment_id", p.ID,
		"payment_intent_id", pi.ID,
		"amount", p.Amount,
		"currency", p.Currency,
	)
	return p, true, nil
}

func (s *reconciliationService) alreadyReconciled(ctx context.Context, inv *invoice.Invoice, intentID string) (*dto.ReconciliationResponse, error) {
	resp := &dto.ReconciliationResponse{
		Invoice:           dto.NewInvoiceResponse(inv),
		AlreadyReconciled: true,
	}

	key := s.IdempotencyGen.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
		"invoice_id":        inv.ID,
		"payment_intent_id": intentID,
	})
	if p, err := s.PaymentRepo.GetByIdempotencyKey(ctx, key); err == nil {
		resp.Payment = dto.NewPaymentResponse(p)
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}
	return resp, nil
}

// findInvoiceForIntent prefers the invoice_id the intent was created
// with; deliveries for intents created elsewhere fall back to the
// linked intent column.
func (s *reconciliationService) findInvoiceForIntent(ctx context.Context, pi *stripe.PaymentIntent) (*invoice.Invoice, error) {
	if invoiceID, ok := pi.Metadata["invoice_id"]; ok && invoiceID != "" {
		return s.InvoiceRepo.Get(ctx, invoiceID)
	}
	return s.InvoiceRepo.GetByPaymentIntentID(ctx, pi.ID)
}

func (s *reconciliationService) verifyAmount(inv *invoice.Invoice, pi *stripe.PaymentIntent) error {
	expected := types.MajorToMinor(inv.AmountDue, inv.Currency)
	if pi.Amount != expected || !types.IsSameCurrency(pi.Currency, inv.Currency) {
		return ierr.NewError("payment intent does not match invoice").
			WithHint("The amount or currency paid does not match the invoice").
			WithReportableDetails(map[string]any{
				"invoice_id":        inv.ID,
				"payment_intent_id": pi.ID,
				"expected_amount":   expected,
				"actual_amount":     pi.Amount,
				"expected_currency": inv.Currency,
				"actual_currency":   pi.Currency,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (s *reconciliationService) recordEvent(ctx context.Context, event *stripe.Event) (bool, error) {
	return s.WebhookEventRepo.MarkProcessed(ctx, &webhookevent.WebhookEvent{
		ID:          event.ID,
		EventType:   event.Type,
		ProcessedAt: time.Now().UTC(),
	})
}

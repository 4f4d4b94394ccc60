package testutil

import (
	"context"

	"github.com/covionstudio/billing/internal/domain/payment"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	cp := *p
	return &cp
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment data is required").
			Mark(ierr.ErrValidation)
	}

	// Mirror the unique constraint on idempotency_key.
	if existing, err := s.GetByIdempotencyKey(ctx, p.IdempotencyKey); err == nil && existing != nil {
		return ierr.NewError("duplicate idempotency key").
			WithHint("A payment with this idempotency key already exists").
			WithReportableDetails(map[string]any{"idempotency_key": p.IdempotencyKey}).
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, func(_ context.Context, p *payment.Payment) bool {
		return p.Status != types.StatusDeleted && p.IdempotencyKey == key
	})
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ierr.NewError("item not found").
			WithHint("No payment recorded for this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(payments[0]), nil
}

func (s *InMemoryPaymentStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, func(_ context.Context, p *payment.Payment) bool {
		return p.Status != types.StatusDeleted && p.StripePaymentIntentID == paymentIntentID
	})
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ierr.NewError("item not found").
			WithHint("No payment recorded for this payment intent").
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(payments[len(payments)-1]), nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, paymentFilterFn(filter))
	if err != nil {
		return nil, err
	}
	result := make([]*payment.Payment, 0, len(payments))
	for _, p := range payments {
		result = append(result, copyPayment(p))
	}
	if filter != nil && !filter.IsUnlimited() {
		offset := filter.GetOffset()
		if offset > len(result) {
			offset = len(result)
		}
		end := offset + filter.GetLimit()
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, paymentFilterFn(filter))
}

func paymentFilterFn(filter *types.PaymentFilter) func(ctx context.Context, p *payment.Payment) bool {
	return func(_ context.Context, p *payment.Payment) bool {
		if p.Status == types.StatusDeleted {
			return false
		}
		if filter == nil {
			return true
		}
		if filter.InvoiceID != nil && p.InvoiceID != *filter.InvoiceID {
			return false
		}
		if filter.PaymentStatus != nil && p.PaymentStatus != *filter.PaymentStatus {
			return false
		}
		if filter.StripePaymentIntentID != nil && p.StripePaymentIntentID != *filter.StripePaymentIntentID {
			return false
		}
		if filter.Currency != nil && !types.IsSameCurrency(p.Currency, *filter.Currency) {
			return false
		}
		return true
	}
}

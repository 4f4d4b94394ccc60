package testutil

import (
	"context"
	"time"

	"github.com/covionstudio/billing/internal/domain/invoice"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	return &cp
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == types.StatusDeleted {
		return nil, ierr.NewError("item not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, func(_ context.Context, inv *invoice.Invoice) bool {
		return inv.Status != types.StatusDeleted &&
			inv.StripePaymentIntentID != nil &&
			*inv.StripePaymentIntentID == paymentIntentID
	})
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, ierr.NewError("item not found").
			WithHint("No invoice is linked to this payment intent").
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(invoices[0]), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	existing, err := s.InMemoryStore.Get(ctx, inv.ID)
	if err != nil {
		return err
	}
	updated := copyInvoice(inv)
	updated.InvoiceStatus = existing.InvoiceStatus
	updated.PaidAt = existing.PaidAt
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, inv.ID, updated)
}

func (s *InMemoryInvoiceStore) MarkPaid(ctx context.Context, id string, paymentIntentID string) (bool, error) {
	s.Lock()
	defer s.Unlock()

	inv, exists := s.items[id]
	if !exists || inv.Status == types.StatusDeleted {
		return false, ierr.NewError("item not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	if inv.InvoiceStatus != types.InvoiceStatusUnpaid {
		return false, nil
	}

	now := time.Now().UTC()
	updated := copyInvoice(inv)
	updated.InvoiceStatus = types.InvoiceStatusPaid
	updated.StripePaymentIntentID = &paymentIntentID
	updated.PaidAt = &now
	updated.UpdatedAt = now
	s.items[id] = updated
	return true, nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, invoiceFilterFn(filter))
	if err != nil {
		return nil, err
	}
	result := make([]*invoice.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, copyInvoice(inv))
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

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, invoiceFilterFn(filter))
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	updated := copyInvoice(inv)
	updated.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, id, updated)
}

func invoiceFilterFn(filter *types.InvoiceFilter) func(ctx context.Context, inv *invoice.Invoice) bool {
	return func(_ context.Context, inv *invoice.Invoice) bool {
		if inv.Status == types.StatusDeleted {
			return false
		}
		if filter == nil {
			return true
		}
		if len(filter.InvoiceIDs) > 0 {
			found := false
			for _, id := range filter.InvoiceIDs {
				if inv.ID == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		if filter.InvoiceStatus != nil && inv.InvoiceStatus != *filter.InvoiceStatus {
			return false
		}
		if filter.StripePaymentIntentID != nil {
			if inv.StripePaymentIntentID == nil || *inv.StripePaymentIntentID != *filter.StripePaymentIntentID {
				return false
			}
		}
		if filter.Currency != nil && !types.IsSameCurrency(inv.Currency, *filter.Currency) {
			return false
		}
		return true
	}
}

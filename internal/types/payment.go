package types

import (
	ierr "github.com/covionstudio/billing/internal/errors"
)

// PaymentStatus is the terminal state of a reconciled payment attempt.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusCompleted,
		PaymentStatusFailed,
	}
	for _, status := range allowed {
		if s == status {
			return nil
		}
	}
	return ierr.NewError("invalid payment status").
		WithHint("Payment status must be one of the allowed values").
		WithReportableDetails(map[string]any{
			"allowed": allowed,
			"given":   s,
		}).
		Mark(ierr.ErrValidation)
}

// PaymentMethodType is how the customer paid.
type PaymentMethodType string

const (
	PaymentMethodTypeCard PaymentMethodType = "card"
)

func (t PaymentMethodType) String() string {
	return string(t)
}

func (t PaymentMethodType) Validate() error {
	allowed := []PaymentMethodType{
		PaymentMethodTypeCard,
	}
	for _, mt := range allowed {
		if t == mt {
			return nil
		}
	}
	return ierr.NewError("invalid payment method type").
		WithHint("Payment method type must be one of the allowed values").
		WithReportableDetails(map[string]any{
			"allowed": allowed,
			"given":   t,
		}).
		Mark(ierr.ErrValidation)
}

// PaymentFilter represents the filter options for listing payments
type PaymentFilter struct {
	*QueryFilter
	*TimeRangeFilter
	InvoiceID             *string        `json:"invoice_id,omitempty" form:"invoice_id"`
	PaymentStatus         *PaymentStatus `json:"payment_status,omitempty" form:"payment_status"`
	StripePaymentIntentID *string        `json:"stripe_payment_intent_id,omitempty" form:"stripe_payment_intent_id"`
	Currency              *string        `json:"currency,omitempty" form:"currency"`
}

func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the payment filter
func (f *PaymentFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	if f.PaymentStatus != nil {
		if err := f.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *PaymentFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *PaymentFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetSort implements BaseFilter interface
func (f *PaymentFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *PaymentFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// GetStatus implements BaseFilter interface
func (f *PaymentFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

// IsUnlimited implements BaseFilter interface
func (f *PaymentFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}

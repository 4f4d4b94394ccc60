package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/covionstudio/billing/internal/api/dto"
	"github.com/covionstudio/billing/internal/domain/invoice"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/types"
)

// InvoiceService manages invoices and their payment intents
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	// CreatePaymentIntent creates a Stripe payment intent for the
	// invoice's amount due and links it to the invoice. A caller-supplied
	// amount must agree with the invoice.
	CreatePaymentIntent(ctx context.Context, invoiceID string, req *dto.CreateInvoicePaymentIntentRequest) (*dto.PaymentIntentResponse, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv := req.ToInvoice(ctx)
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"amount_due", inv.AmountDue,
		"currency", inv.Currency,
	)
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return dto.NewInvoiceResponse(inv)
		}),
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *invoiceService) CreatePaymentIntent(ctx context.Context, invoiceID string, req *dto.CreateInvoicePaymentIntentRequest) (*dto.PaymentIntentResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !inv.IsPayable() {
		return nil, ierr.NewError("invoice is not payable").
			WithHintf("Invoice %s is %s; only unpaid invoices accept payments", inv.InvoiceNumber, inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     inv.ID,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	amountMinor := types.MajorToMinor(inv.AmountDue, inv.Currency)
	if req != nil && req.Amount != nil && *req.Amount != amountMinor {
		return nil, ierr.NewError("amount does not match invoice").
			WithHintf("Invoice %s is due %d in the smallest currency unit", inv.InvoiceNumber, amountMinor).
			WithReportableDetails(map[string]any{
				"invoice_id":      inv.ID,
				"expected_amount": amountMinor,
				"given_amount":    *req.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	if amountMinor < dto.MinChargeAmount {
		return nil, ierr.NewError("invoice amount below minimum charge").
			WithHintf("Amount must be at least %d in the smallest currency unit", dto.MinChargeAmount).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"amount":     amountMinor,
				"minimum":    dto.MinChargeAmount,
			}).
			Mark(ierr.ErrValidation)
	}

	pi, err := s.StripeGateway.CreatePaymentIntent(ctx, stripe.CreateIntentRequest{
		Amount:   amountMinor,
		Currency: inv.Currency,
		Metadata: map[string]string{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	inv.StripePaymentIntentID = &pi.ID
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("linked payment intent to invoice",
		"invoice_id", inv.ID,
		"payment_intent_id", pi.ID,
	)

	return &dto.PaymentIntentResponse{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       pi.Status,
		Amount:       pi.Amount,
		Currency:     pi.Currency,
	}, nil
}

package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/covionstudio/billing/internal/api/dto"
	"github.com/covionstudio/billing/internal/domain/payment"
	ierr "github.com/covionstudio/billing/internal/errors"
	"github.com/covionstudio/billing/internal/integration/stripe"
	"github.com/covionstudio/billing/internal/types"
)

// PaymentService handles standalone payment intents and payment queries
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.PaymentIntentResponse, error)
	GetPaymentsConfig(ctx context.Context) (*dto.PaymentsConfigResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.PaymentIntentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pi, err := s.StripeGateway.CreatePaymentIntent(ctx, stripe.CreateIntentRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PaymentIntentResponse{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       pi.Status,
		Amount:       pi.Amount,
		Currency:     pi.Currency,
	}, nil
}

func (s *paymentService) GetPaymentsConfig(ctx context.Context) (*dto.PaymentsConfigResponse, error) {
	key := s.StripeGateway.PublishableKey()
	if key == "" {
		return nil, ierr.NewError("publishable key is not configured").
			WithHint("Payment processing is not configured on this server").
			Mark(ierr.ErrIntegration)
	}
	return &dto.PaymentsConfigResponse{PublishableKey: key}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListPaymentsResponse{
		Items: lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse {
			return dto.NewPaymentResponse(p)
		}),
		Pagination: types.NewPaginationResponse(count, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

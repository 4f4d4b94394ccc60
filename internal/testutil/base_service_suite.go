package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/covionstudio/billing/internal/cache"
	"github.com/covionstudio/billing/internal/config"
	"github.com/covionstudio/billing/internal/logger"
	"github.com/covionstudio/billing/internal/types"
)

// Stores groups the in-memory repositories for a test run
type Stores struct {
	InvoiceRepo      *InMemoryInvoiceStore
	PaymentRepo      *InMemoryPaymentStore
	WebhookEventRepo *InMemoryWebhookEventStore
}

// BaseServiceTestSuite provides common setup for service tests
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	cfg    *config.Configuration
	logger *logger.Logger
	stores Stores
	stripe *FakeStripeGateway
	replay *cache.Cache
}

// SetupSuite initializes shared resources
func (s *BaseServiceTestSuite) SetupSuite() {
	s.cfg = config.GetDefaultConfig()
	log, err := logger.NewLogger(s.cfg)
	s.Require().NoError(err)
	s.logger = log
}

// SetupTest prepares fresh state for each test
func (s *BaseServiceTestSuite) SetupTest() {
	ctx := context.Background()
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	s.ctx = ctx

	s.stores = Stores{
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
	}
	s.stripe = NewFakeStripeGateway()
	s.replay = cache.New(time.Hour)
}

// TearDownTest cleans up after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.InvoiceRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.WebhookEventRepo.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the in-memory repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetStripe returns the fake payment gateway
func (s *BaseServiceTestSuite) GetStripe() *FakeStripeGateway {
	return s.stripe
}

// GetReplayCache returns the webhook replay cache
func (s *BaseServiceTestSuite) GetReplayCache() *cache.Cache {
	return s.replay
}

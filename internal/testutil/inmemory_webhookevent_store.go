package testutil

import (
	"context"
	"sync"

	"github.com/covionstudio/billing/internal/domain/webhookevent"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	mu     sync.Mutex
	events map[string]*webhookevent.WebhookEvent
}

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		events: make(map[string]*webhookevent.WebhookEvent),
	}
}

func (s *InMemoryWebhookEventStore) MarkProcessed(ctx context.Context, event *webhookevent.WebhookEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return false, nil
	}
	cp := *event
	s.events[event.ID] = &cp
	return true, nil
}

func (s *InMemoryWebhookEventStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.events[id]
	return exists, nil
}

func (s *InMemoryWebhookEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*webhookevent.WebhookEvent)
}

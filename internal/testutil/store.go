package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/covionstudio/billing/internal/errors"
)

// InMemoryStore is a generic thread-safe store for testing
type InMemoryStore[T any] struct {
	sync.RWMutex
	items map[string]T
	order []string
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
	}
}

// Create stores an item with the given ID
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewError("item already exists").
			WithHintf("Item with ID %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	s.order = append(s.order, id)
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.RLock()
	defer s.RUnlock()

	item, exists := s.items[id]
	if !exists {
		var zero T
		return zero, ierr.NewError("item not found").
			WithHintf("Item with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

// List returns all items matching the filter, in insertion order
func (s *InMemoryStore[T]) List(ctx context.Context, filterFn func(ctx context.Context, item T) bool) ([]T, error) {
	s.RLock()
	defer s.RUnlock()

	result := make([]T, 0, len(s.items))
	for _, id := range s.order {
		item := s.items[id]
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, item)
		}
	}
	return result, nil
}

// Count returns the number of items matching the filter
func (s *InMemoryStore[T]) Count(ctx context.Context, filterFn func(ctx context.Context, item T) bool) (int, error) {
	items, err := s.List(ctx, filterFn)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Update replaces an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithHintf("Item with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	s.items[id] = item
	return nil
}

// Delete removes an item
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.items[id]; !exists {
		return ierr.NewError("item not found").
			WithHintf("Item with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes all items
func (s *InMemoryStore[T]) Clear() {
	s.Lock()
	defer s.Unlock()
	s.items = make(map[string]T)
	s.order = nil
}

// SortedIDs returns all IDs in lexicographic order
func (s *InMemoryStore[T]) SortedIDs() []string {
	s.RLock()
	defer s.RUnlock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

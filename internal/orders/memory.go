package orders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Context
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]Context),
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, order Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	now := s.now().UTC()
	if order.Status == "" {
		order.Status = StatusCreated
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return Context{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return order, nil
}

func (s *MemoryStore) GetByPaymentRef(_ context.Context, provider, ref string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, order := range s.orders {
		if order.Provider == provider && order.PaymentRef == ref {
			return order, nil
		}
	}
	return Context{}, fmt.Errorf("%s payment %s: %w", provider, ref, ErrNotFound)
}

func (s *MemoryStore) SetPaymentRef(_ context.Context, id, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	order.PaymentRef = ref
	order.UpdatedAt = s.now().UTC()
	s.orders[id] = order
	return nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, change Change) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return Context{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if !CanTransition(order.Status, change.Status) {
		return order, transitionError(id, order.Status, change.Status)
	}
	apply(&order, change)
	order.UpdatedAt = s.now().UTC()
	s.orders[id] = order
	return order, nil
}

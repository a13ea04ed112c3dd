package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/storage/db"
)

// OrderStore persists order contexts in SQLite.
type OrderStore struct {
	q   *db.Queries
	now func() time.Time
}

var _ orders.Store = (*OrderStore)(nil)

func (s *OrderStore) Create(ctx context.Context, order orders.Context) error {
	now := s.now().UTC()
	if order.Status == "" {
		order.Status = orders.StatusCreated
	}
	err := s.q.CreateOrder(ctx, db.CreateOrderParams{
		ID:            order.ID,
		Email:         nullString(order.Email),
		ImageID:       order.ImageID,
		ProductID:     order.ProductID,
		FileUrl:       order.FileURL,
		Provider:      order.Provider,
		PaymentRef:    nullString(order.PaymentRef),
		Vendor:        nullString(order.Vendor),
		VendorOrderID: nullString(order.VendorOrderID),
		Status:        string(order.Status),
		Error:         nullString(order.Error),
		CreatedAt:     toMillis(now),
		UpdatedAt:     toMillis(now),
	})
	if err != nil {
		return fmt.Errorf("create order %s: %w", order.ID, err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (orders.Context, error) {
	row, err := s.q.GetOrder(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Context{}, fmt.Errorf("order %s: %w", id, orders.ErrNotFound)
	}
	if err != nil {
		return orders.Context{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return toOrder(row), nil
}

func (s *OrderStore) GetByPaymentRef(ctx context.Context, provider, ref string) (orders.Context, error) {
	row, err := s.q.GetOrderByPaymentRef(ctx, db.GetOrderByPaymentRefParams{
		Provider:   provider,
		PaymentRef: nullString(ref),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Context{}, fmt.Errorf("%s payment %s: %w", provider, ref, orders.ErrNotFound)
	}
	if err != nil {
		return orders.Context{}, fmt.Errorf("get order by %s payment %s: %w", provider, ref, err)
	}
	return toOrder(row), nil
}

func (s *OrderStore) SetPaymentRef(ctx context.Context, id, ref string) error {
	n, err := s.q.SetOrderPaymentRef(ctx, db.SetOrderPaymentRefParams{
		PaymentRef: nullString(ref),
		UpdatedAt:  toMillis(s.now().UTC()),
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("set payment ref for order %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", id, orders.ErrNotFound)
	}
	return nil
}

// Transition is a compare-and-set on the current status, so of two
// concurrent claims only one succeeds.
func (s *OrderStore) Transition(ctx context.Context, id string, change orders.Change) (orders.Context, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return orders.Context{}, err
	}
	if !orders.CanTransition(order.Status, change.Status) {
		return order, fmt.Errorf("order %s %s -> %s: %w", id, order.Status, change.Status, orders.ErrInvalidTransition)
	}

	n, err := s.q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{
		Status:        string(change.Status),
		Email:         nullString(change.Email),
		PaymentRef:    nullString(change.PaymentRef),
		Vendor:        nullString(change.Vendor),
		VendorOrderID: nullString(change.VendorOrderID),
		Error:         nullString(change.Error),
		UpdatedAt:     toMillis(s.now().UTC()),
		ID:            id,
		FromStatus:    string(order.Status),
	})
	if err != nil {
		return order, fmt.Errorf("update order %s: %w", id, err)
	}
	if n == 0 {
		return order, fmt.Errorf("order %s changed concurrently: %w", id, orders.ErrInvalidTransition)
	}
	return s.Get(ctx, id)
}

func toOrder(row db.Order) orders.Context {
	return orders.Context{
		ID:            row.ID,
		Email:         row.Email.String,
		ImageID:       row.ImageID,
		ProductID:     row.ProductID,
		FileURL:       row.FileUrl,
		Provider:      row.Provider,
		PaymentRef:    row.PaymentRef.String,
		Vendor:        row.Vendor.String,
		VendorOrderID: row.VendorOrderID.String,
		Status:        orders.Status(row.Status),
		Error:         row.Error.String,
		CreatedAt:     fromMillis(row.CreatedAt),
		UpdatedAt:     fromMillis(row.UpdatedAt),
	}
}

package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusPaid, true},
		{StatusCreated, StatusFulfilling, true},
		{StatusCreated, StatusSkipped, true},
		{StatusPaid, StatusFulfilling, true},
		{StatusPaid, StatusCreated, false},
		{StatusFulfilling, StatusFulfilled, true},
		{StatusFulfilling, StatusFailed, true},
		{StatusFulfilling, StatusFulfilling, false},
		{StatusFulfilled, StatusFailed, false},
		{StatusSkipped, StatusFulfilling, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New().String()

	require.NoError(t, store.Create(ctx, Context{
		ID:        id,
		ImageID:   "img-1",
		ProductID: "poster-a3",
		FileURL:   "https://cdn.example.com/a.png",
		Provider:  ProviderStripe,
	}))

	created, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, created.Status)

	require.NoError(t, store.SetPaymentRef(ctx, id, "cs_test_1"))
	byRef, err := store.GetByPaymentRef(ctx, ProviderStripe, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, id, byRef.ID)

	_, err = store.GetByPaymentRef(ctx, ProviderPayPal, "cs_test_1")
	assert.True(t, errors.Is(err, ErrNotFound), "ref lookup is scoped to provider")

	paid, err := store.Transition(ctx, id, Change{Status: StatusPaid, Email: "buyer@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", paid.Email)

	_, err = store.Transition(ctx, id, Change{Status: StatusFulfilling, Vendor: "gelato"})
	require.NoError(t, err)

	_, err = store.Transition(ctx, id, Change{Status: StatusFulfilling})
	assert.True(t, errors.Is(err, ErrInvalidTransition), "second claim must fail")

	done, err := store.Transition(ctx, id, Change{Status: StatusFulfilled, VendorOrderID: "gel-123"})
	require.NoError(t, err)
	assert.Equal(t, "gelato", done.Vendor)
	assert.Equal(t, "gel-123", done.VendorOrderID)
	assert.Equal(t, "buyer@example.com", done.Email, "empty change fields keep existing values")
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.Transition(ctx, "missing", Change{Status: StatusPaid})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(store.SetPaymentRef(ctx, "missing", "x"), ErrNotFound))
}

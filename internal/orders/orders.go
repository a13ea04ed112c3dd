package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loganlanou/aigifts/internal/apperr"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusPaid       Status = "paid"
	StatusFulfilling Status = "fulfilling"
	StatusFulfilled  Status = "fulfilled"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

var (
	ErrNotFound          = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Context links a payment to the fulfillment request it pays for.
type Context struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	ImageID       string    `json:"image_id"`
	ProductID     string    `json:"product_id"`
	FileURL       string    `json:"file_url"`
	Provider      string    `json:"provider"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	Vendor        string    `json:"vendor,omitempty"`
	VendorOrderID string    `json:"vendor_order_id,omitempty"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s Status) Terminal() bool {
	return s == StatusFulfilled || s == StatusFailed || s == StatusSkipped
}

// CanTransition reports whether from -> to moves the order forward.
// created -> paid -> fulfilling -> fulfilled|failed; created|paid -> skipped.
// created -> fulfilling is allowed for payments confirmed and dispatched in one step.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusPaid || to == StatusFulfilling || to == StatusSkipped || to == StatusFailed
	case StatusPaid:
		return to == StatusFulfilling || to == StatusSkipped || to == StatusFailed
	case StatusFulfilling:
		return to == StatusFulfilled || to == StatusFailed
	default:
		return false
	}
}

// Change is applied together with a status transition. Empty fields are left alone.
type Change struct {
	Status        Status
	Email         string
	PaymentRef    string
	Vendor        string
	VendorOrderID string
	Error         string
}

type Store interface {
	Create(ctx context.Context, order Context) error
	Get(ctx context.Context, id string) (Context, error)
	GetByPaymentRef(ctx context.Context, provider, ref string) (Context, error)
	// SetPaymentRef records the provider's session/order id before payment completes.
	SetPaymentRef(ctx context.Context, id, ref string) error
	Transition(ctx context.Context, id string, change Change) (Context, error)
}

func transitionError(id string, from, to Status) error {
	return fmt.Errorf("order %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
}

func apply(order *Context, change Change) {
	order.Status = change.Status
	if change.Email != "" {
		order.Email = change.Email
	}
	if change.PaymentRef != "" {
		order.PaymentRef = change.PaymentRef
	}
	if change.Vendor != "" {
		order.Vendor = change.Vendor
	}
	if change.VendorOrderID != "" {
		order.VendorOrderID = change.VendorOrderID
	}
	if change.Error != "" {
		order.Error = change.Error
	}
}

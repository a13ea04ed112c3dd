package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/orders"
)

// Dispatcher sends paid orders to a print vendor exactly once per order ID.
type Dispatcher struct {
	store     orders.Store
	providers map[string]Provider
}

func NewDispatcher(store orders.Store, providers ...Provider) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		d.providers[p.Name()] = p
	}
	return d
}

func (d *Dispatcher) Provider(vendor string) (Provider, error) {
	p, ok := d.providers[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, vendor)
	}
	return p, nil
}

// Dispatch fulfils a paid checkout order. It validates the order, claims it
// and submits it to the vendor. A missing field marks the order skipped and
// returns an error wrapping both ErrSkipped and the MissingFieldError. A
// second dispatch of the same order ID returns ErrAlreadyDispatched without
// contacting the vendor.
func (d *Dispatcher) Dispatch(ctx context.Context, vendor string, order Order) (*Result, error) {
	return d.dispatch(ctx, vendor, order, false)
}

// DispatchDirect submits an order that did not come through a checkout. It
// only creates and claims order contexts of its own: an ID already taken by a
// Stripe or PayPal order returns ErrCheckoutOrder and leaves that order alone.
// An incomplete order is rejected without recording anything.
func (d *Dispatcher) DispatchDirect(ctx context.Context, vendor string, order Order) (*Result, error) {
	return d.dispatch(ctx, vendor, order, true)
}

func (d *Dispatcher) dispatch(ctx context.Context, vendor string, order Order, direct bool) (*Result, error) {
	provider, err := d.Provider(vendor)
	if err != nil {
		return nil, err
	}

	if order.ProductIdentifier == "" && order.ProductID != "" {
		if product, ok := catalog.Lookup(order.ProductID); ok {
			order.ProductIdentifier = product.VendorIdentifier(vendor)
		}
	}

	if err := order.Validate(); err != nil {
		slog.Warn("skipping fulfillment, order incomplete",
			"order_id", order.OrderID,
			"vendor", vendor,
			"direct", direct,
			"error", err)
		if !direct && order.OrderID != "" {
			d.markSkipped(ctx, order.OrderID, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrSkipped, err)
	}

	if order.OrderID == "" {
		order.OrderID = uuid.New().String()
	}

	if direct {
		err = d.claimDirect(ctx, vendor, order)
	} else {
		err = d.claim(ctx, vendor, order)
	}
	if err != nil {
		return nil, err
	}

	result, err := provider.SubmitOrder(ctx, order)
	if err != nil {
		slog.Error("fulfillment submission failed",
			"order_id", order.OrderID,
			"vendor", vendor,
			"error", err)
		if _, terr := d.store.Transition(context.WithoutCancel(ctx), order.OrderID, orders.Change{
			Status: orders.StatusFailed,
			Error:  err.Error(),
		}); terr != nil {
			slog.Error("failed to record fulfillment failure", "order_id", order.OrderID, "error", terr)
		}
		return result, err
	}

	if _, err := d.store.Transition(ctx, order.OrderID, orders.Change{
		Status:        orders.StatusFulfilled,
		VendorOrderID: result.VendorOrderID,
	}); err != nil {
		slog.Error("failed to record fulfilled order",
			"order_id", order.OrderID,
			"vendor_order_id", result.VendorOrderID,
			"error", err)
	}

	slog.Info("order sent to vendor",
		"order_id", order.OrderID,
		"vendor", vendor,
		"vendor_order_id", result.VendorOrderID,
		"status", result.Status)
	return result, nil
}

// claim moves a checkout order to fulfilling. A context lost since checkout
// (memory store restart) is recreated from the paid order.
func (d *Dispatcher) claim(ctx context.Context, vendor string, order Order) error {
	_, err := d.store.Transition(ctx, order.OrderID, claimChange(vendor, order))
	if errors.Is(err, orders.ErrNotFound) {
		d.createContext(ctx, order)
		_, err = d.store.Transition(ctx, order.OrderID, claimChange(vendor, order))
	}
	return claimError(vendor, order.OrderID, err)
}

// claimDirect creates the context for a direct order and claims it, refusing
// any context a checkout owns.
func (d *Dispatcher) claimDirect(ctx context.Context, vendor string, order Order) error {
	existing, err := d.store.Get(ctx, order.OrderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		d.createContext(ctx, order)
	case err != nil:
		return fmt.Errorf("claim order %s: %w", order.OrderID, err)
	case existing.Provider != "":
		slog.Warn("direct order reused a checkout order id",
			"order_id", order.OrderID,
			"provider", existing.Provider,
			"vendor", vendor)
		return fmt.Errorf("order %s: %w", order.OrderID, ErrCheckoutOrder)
	}

	_, err = d.store.Transition(ctx, order.OrderID, claimChange(vendor, order))
	return claimError(vendor, order.OrderID, err)
}

func (d *Dispatcher) createContext(ctx context.Context, order Order) {
	err := d.store.Create(ctx, orders.Context{
		ID:        order.OrderID,
		Email:     order.Email,
		ImageID:   order.ImageID,
		ProductID: order.ProductID,
		FileURL:   order.FileURL,
		Status:    orders.StatusPaid,
	})
	if err != nil {
		slog.Debug("order context create raced", "order_id", order.OrderID, "error", err)
	}
}

func claimChange(vendor string, order Order) orders.Change {
	return orders.Change{Status: orders.StatusFulfilling, Vendor: vendor, Email: order.Email}
}

func claimError(vendor, id string, err error) error {
	if errors.Is(err, orders.ErrInvalidTransition) {
		slog.Info("order already dispatched, ignoring", "order_id", id, "vendor", vendor)
		return fmt.Errorf("order %s: %w", id, ErrAlreadyDispatched)
	}
	if err != nil {
		return fmt.Errorf("claim order %s: %w", id, err)
	}
	return nil
}

func (d *Dispatcher) markSkipped(ctx context.Context, id string, reason error) {
	_, err := d.store.Transition(ctx, id, orders.Change{Status: orders.StatusSkipped, Error: reason.Error()})
	if err != nil && !errors.Is(err, orders.ErrNotFound) {
		slog.Warn("failed to mark order skipped", "order_id", id, "error", err)
	}
}

// Status asks the vendor for the current state of a submitted order.
func (d *Dispatcher) Status(ctx context.Context, vendor, vendorOrderID string) (*Result, error) {
	provider, err := d.Provider(vendor)
	if err != nil {
		return nil, err
	}
	return provider.GetOrder(ctx, vendorOrderID)
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	stripego "github.com/stripe/stripe-go/v80"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/internal/stripe"
)

// StripeCheckout is the part of stripe.Service the handlers use.
type StripeCheckout interface {
	Enabled() bool
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripego.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripego.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (stripego.Event, error)
}

type PaymentHandler struct {
	stripe     StripeCheckout
	orders     orders.Store
	dispatcher *fulfillment.Dispatcher
}

func NewPaymentHandler(s StripeCheckout, store orders.Store, dispatcher *fulfillment.Dispatcher) *PaymentHandler {
	return &PaymentHandler{
		stripe:     s,
		orders:     store,
		dispatcher: dispatcher,
	}
}

// CheckoutRequest is shared by the Stripe and PayPal checkout endpoints.
type CheckoutRequest struct {
	ProductID string `json:"product_id"`
	ImageID   string `json:"image_id"`
	FileURL   string `json:"file_url"`
	Email     string `json:"email"`
}

// product validates the request and returns the product it buys, which must
// be stocked by vendor.
func (r CheckoutRequest) product(vendor string) (catalog.Product, error) {
	if strings.TrimSpace(r.FileURL) == "" {
		return catalog.Product{}, echo.NewHTTPError(http.StatusBadRequest, "file_url is required")
	}
	if strings.TrimSpace(r.ImageID) == "" {
		return catalog.Product{}, echo.NewHTTPError(http.StatusBadRequest, "image_id is required")
	}
	product, ok := catalog.Lookup(r.ProductID)
	if !ok {
		return catalog.Product{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown product %q", r.ProductID))
	}
	if product.VendorIdentifier(vendor) == "" {
		return catalog.Product{}, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("%s is not available with this payment method", product.Name))
	}
	return product, nil
}

type StripeCheckoutResponse struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckout records the order context and opens a Stripe Checkout
// Session for it. Stripe-paid orders are fulfilled by Gelato.
func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	if !h.stripe.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Stripe checkout is not configured")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	product, err := req.product(catalog.VendorGelato)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	oc := orders.Context{
		ID:        uuid.New().String(),
		Email:     req.Email,
		ImageID:   req.ImageID,
		ProductID: product.ID,
		FileURL:   req.FileURL,
		Provider:  orders.ProviderStripe,
		Status:    orders.StatusCreated,
	}
	if err := h.orders.Create(ctx, oc); err != nil {
		return fmt.Errorf("create order context: %w", err)
	}

	session, err := h.stripe.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		OrderID: oc.ID,
		Product: product,
		ImageID: req.ImageID,
		FileURL: req.FileURL,
		Email:   req.Email,
	})
	if err != nil {
		return err
	}
	if err := h.orders.SetPaymentRef(ctx, oc.ID, session.ID); err != nil {
		slog.Error("failed to record checkout session on order", "order_id", oc.ID, "session_id", session.ID, "error", err)
	}

	return c.JSON(http.StatusOK, StripeCheckoutResponse{
		OrderID:   oc.ID,
		SessionID: session.ID,
		URL:       session.URL,
	})
}

// ConfirmCheckout is the success-redirect fallback for when the webhook is
// slow or not configured. Dispatch is idempotent, so racing the webhook is
// harmless.
func (h *PaymentHandler) ConfirmCheckout(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	ctx := c.Request().Context()
	session, err := h.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return err
	}

	order, err := stripe.OrderFromSession(session)
	if errors.Is(err, stripe.ErrNotPaid) {
		return echo.NewHTTPError(http.StatusPaymentRequired, "payment not completed")
	}
	if err != nil {
		return err
	}

	if err := h.dispatch(ctx, order); err != nil {
		return err
	}
	return h.renderOrder(c, order.OrderID)
}

// HandleWebhook fulfils checkout.session.completed events. Skipped and
// duplicate deliveries are acknowledged so Stripe stops retrying them.
func (h *PaymentHandler) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Request body too large")
	}

	event, err := h.stripe.ParseWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		slog.Error("webhook signature verification failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid signature")
	}

	if string(event.Type) != stripe.EventCheckoutCompleted {
		slog.Debug("ignoring stripe event", "type", event.Type, "event_id", event.ID)
		return c.JSON(http.StatusOK, map[string]any{"received": true})
	}

	session, err := stripe.SessionFromEvent(event)
	if err != nil {
		return err
	}

	order, err := stripe.OrderFromSession(session)
	if errors.Is(err, stripe.ErrNotPaid) {
		slog.Info("checkout completed without payment, waiting", "session_id", session.ID)
		return c.JSON(http.StatusOK, map[string]any{"received": true, "status": "unpaid"})
	}
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.dispatch(ctx, order); err != nil {
		// recorded on the order as failed; a redelivery would be a no-op
		slog.Error("webhook fulfillment failed", "session_id", session.ID, "order_id", order.OrderID, "error", err)
	}

	resp := map[string]any{"received": true}
	if oc, err := h.orders.Get(ctx, order.OrderID); err == nil {
		resp["order_id"] = oc.ID
		resp["status"] = oc.Status
	}
	return c.JSON(http.StatusOK, resp)
}

// dispatch sends a Stripe order to Gelato.
func (h *PaymentHandler) dispatch(ctx context.Context, order fulfillment.Order) error {
	return dispatchOrder(ctx, h.dispatcher, catalog.VendorGelato, order)
}

func (h *PaymentHandler) renderOrder(c echo.Context, id string) error {
	oc, err := h.orders.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, oc)
}

// dispatchOrder treats skipped and duplicate orders as handled; the order
// context records what happened.
func dispatchOrder(ctx context.Context, d *fulfillment.Dispatcher, vendor string, order fulfillment.Order) error {
	_, err := d.Dispatch(ctx, vendor, order)
	if errors.Is(err, fulfillment.ErrSkipped) || errors.Is(err, fulfillment.ErrAlreadyDispatched) {
		return nil
	}
	return err
}

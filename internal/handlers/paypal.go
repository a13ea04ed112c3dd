package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/internal/paypal"
)

// PayPalOrders is the part of paypal.Client the handlers use.
type PayPalOrders interface {
	Enabled() bool
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, id string) (*paypal.Order, error)
	GetOrder(ctx context.Context, id string) (*paypal.Order, error)
}

type PayPalHandler struct {
	paypal     PayPalOrders
	orders     orders.Store
	dispatcher *fulfillment.Dispatcher
}

func NewPayPalHandler(p PayPalOrders, store orders.Store, dispatcher *fulfillment.Dispatcher) *PayPalHandler {
	return &PayPalHandler{
		paypal:     p,
		orders:     store,
		dispatcher: dispatcher,
	}
}

type PayPalOrderResponse struct {
	OrderID       string `json:"order_id"`
	PayPalOrderID string `json:"paypal_order_id"`
	ApproveURL    string `json:"approve_url,omitempty"`
}

// CreateOrder records the order context and creates the PayPal order the
// buyer approves. PayPal-paid orders are fulfilled by Prodigi.
func (h *PayPalHandler) CreateOrder(c echo.Context) error {
	if !h.paypal.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "PayPal checkout is not configured")
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	product, err := req.product(catalog.VendorProdigi)
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
		Provider:  orders.ProviderPayPal,
		Status:    orders.StatusCreated,
	}
	if err := h.orders.Create(ctx, oc); err != nil {
		return fmt.Errorf("create order context: %w", err)
	}

	ppOrder, err := h.paypal.CreateOrder(ctx, paypal.CreateOrderRequest{
		ReferenceID: oc.ID,
		AmountCents: product.PriceCents,
		Currency:    product.Currency,
		Description: product.Name,
	})
	if err != nil {
		return err
	}

	// capture finds the context by PayPal order ID, so this must stick
	if err := h.orders.SetPaymentRef(ctx, oc.ID, ppOrder.ID); err != nil {
		return fmt.Errorf("record paypal order: %w", err)
	}

	return c.JSON(http.StatusOK, PayPalOrderResponse{
		OrderID:       oc.ID,
		PayPalOrderID: ppOrder.ID,
		ApproveURL:    ppOrder.ApproveURL(),
	})
}

// CaptureOrder captures an approved PayPal order and sends it to Prodigi.
func (h *PayPalHandler) CaptureOrder(c echo.Context) error {
	paypalOrderID := c.Param("id")
	ctx := c.Request().Context()

	oc, err := h.orders.GetByPaymentRef(ctx, orders.ProviderPayPal, paypalOrderID)
	if err != nil {
		return err
	}

	capture, err := h.paypal.CaptureOrder(ctx, paypalOrderID)
	if paypal.AlreadyCaptured(err) {
		// an earlier capture went through; read the order back and finish fulfilment
		slog.Info("paypal order already captured", "paypal_order_id", paypalOrderID, "order_id", oc.ID)
		capture, err = h.paypal.GetOrder(ctx, paypalOrderID)
	}
	if err != nil {
		return err
	}
	if capture.Status != paypal.StatusCompleted {
		slog.Warn("paypal capture not completed", "paypal_order_id", paypalOrderID, "status", capture.Status)
		return echo.NewHTTPError(http.StatusPaymentRequired, fmt.Sprintf("payment %s", capture.Status))
	}

	order := paypal.OrderFromCapture(capture, oc)
	if err := dispatchOrder(ctx, h.dispatcher, catalog.VendorProdigi, order); err != nil {
		var vendorErr *fulfillment.VendorError
		if errors.As(err, &vendorErr) {
			slog.Error("prodigi rejected paid order",
				"order_id", oc.ID,
				"status_code", vendorErr.StatusCode,
				"url", vendorErr.URL)
		}
		return err
	}

	updated, err := h.orders.Get(ctx, oc.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

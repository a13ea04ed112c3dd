package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
)

type FulfillmentHandler struct {
	orders     orders.Store
	dispatcher *fulfillment.Dispatcher
}

func NewFulfillmentHandler(store orders.Store, dispatcher *fulfillment.Dispatcher) *FulfillmentHandler {
	return &FulfillmentHandler{orders: store, dispatcher: dispatcher}
}

// GetOrderContext returns the stored order context and its fulfillment status.
func (h *FulfillmentHandler) GetOrderContext(c echo.Context) error {
	oc, err := h.orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, oc)
}

// CreateVendorOrder submits an order directly to a vendor. An incomplete
// order is rejected with 400 before any request leaves the server. Order IDs
// that belong to a checkout are refused with 409.
func (h *FulfillmentHandler) CreateVendorOrder(c echo.Context) error {
	vendor := c.Param("vendor")
	if _, err := h.dispatcher.Provider(vendor); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	var order fulfillment.Order
	if err := c.Bind(&order); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.dispatcher.DispatchDirect(c.Request().Context(), vendor, order)
	if errors.Is(err, fulfillment.ErrAlreadyDispatched) || errors.Is(err, fulfillment.ErrCheckoutOrder) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		var vendorErr *fulfillment.VendorError
		if errors.As(err, &vendorErr) {
			// surface the vendor's own answer
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":       err.Error(),
				"vendor":      vendorErr.Vendor,
				"status_code": vendorErr.StatusCode,
				"raw":         string(vendorErr.Body),
			})
		}
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *FulfillmentHandler) GetVendorOrder(c echo.Context) error {
	vendor := c.Param("vendor")
	if _, err := h.dispatcher.Provider(vendor); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	result, err := h.dispatcher.Status(c.Request().Context(), vendor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/internal/paypal"
)

type fakePayPal struct {
	created       []paypal.CreateOrderRequest
	captureStatus string
	captureErr    error
	captures      int
	gets          int
}

func (f *fakePayPal) Enabled() bool { return true }

func (f *fakePayPal) CreateOrder(_ context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error) {
	f.created = append(f.created, req)
	return &paypal.Order{
		ID:     "PP-" + gofakeit.LetterN(10),
		Status: "CREATED",
		Links:  []paypal.Link{{Rel: "approve", Href: "https://www.sandbox.paypal.com/checkoutnow?token=x"}},
	}, nil
}

func (f *fakePayPal) CaptureOrder(_ context.Context, id string) (*paypal.Order, error) {
	f.captures++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return f.order(id), nil
}

func (f *fakePayPal) GetOrder(_ context.Context, id string) (*paypal.Order, error) {
	f.gets++
	return f.order(id), nil
}

func (f *fakePayPal) order(id string) *paypal.Order {
	addr := gofakeit.Address()
	return &paypal.Order{
		ID:     id,
		Status: f.captureStatus,
		Payer: &paypal.Payer{
			EmailAddress: "payer@example.com",
			Name:         &paypal.Name{GivenName: "Pat", Surname: "Payer"},
		},
		PurchaseUnits: []paypal.PurchaseUnit{{
			Shipping: &paypal.Shipping{
				Name: &paypal.Name{FullName: "Sam Shipping"},
				Address: &paypal.Address{
					AddressLine1: addr.Street,
					AdminArea2:   addr.City,
					AdminArea1:   addr.State,
					PostalCode:   addr.Zip,
					CountryCode:  "GB",
				},
			},
		}},
	}
}

type paypalFixture struct {
	handler *PayPalHandler
	paypal  *fakePayPal
	orders  *orders.MemoryStore
	prodigi *stubProvider
}

func newPayPalFixture() *paypalFixture {
	f := &paypalFixture{
		paypal:  &fakePayPal{captureStatus: paypal.StatusCompleted},
		orders:  orders.NewMemoryStore(),
		prodigi: &stubProvider{name: catalog.VendorProdigi},
	}
	f.handler = NewPayPalHandler(f.paypal, f.orders, fulfillment.NewDispatcher(f.orders, f.prodigi))
	return f
}

func (f *paypalFixture) create(t *testing.T, productID string) PayPalOrderResponse {
	t.Helper()
	c, rec := NewTestContext(http.MethodPost, "/api/paypal/orders", CheckoutRequest{
		ProductID: productID,
		ImageID:   "01JTESTIMAGE",
		FileURL:   "https://cdn.example.com/assets/print.png",
	})
	require.NoError(t, f.handler.CreateOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PayPalOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (f *paypalFixture) capture(ppOrderID string) (int, []byte) {
	c, rec := NewTestContext(http.MethodPost, "/api/paypal/orders/:id/capture", nil)
	c.SetParamNames("id")
	c.SetParamValues(ppOrderID)
	Serve(c, f.handler.CaptureOrder)
	return rec.Code, rec.Body.Bytes()
}

func TestPayPal_CreateAndCapture(t *testing.T) {
	f := newPayPalFixture()

	resp := f.create(t, "cushion-45")
	assert.NotEmpty(t, resp.ApproveURL)
	require.Len(t, f.paypal.created, 1)
	product, _ := catalog.Lookup("cushion-45")
	assert.Equal(t, product.PriceCents, f.paypal.created[0].AmountCents)
	assert.Equal(t, resp.OrderID, f.paypal.created[0].ReferenceID)

	code, body := f.capture(resp.PayPalOrderID)
	require.Equal(t, http.StatusOK, code, string(body))

	var oc orders.Context
	require.NoError(t, json.Unmarshal(body, &oc))
	assert.Equal(t, orders.StatusFulfilled, oc.Status)
	assert.Equal(t, catalog.VendorProdigi, oc.Vendor)

	require.Equal(t, 1, f.prodigi.calls())
	sent := f.prodigi.submitted[0]
	assert.Equal(t, product.ProdigiSKU, sent.ProductIdentifier)
	assert.Equal(t, "https://cdn.example.com/assets/print.png", sent.FileURL)
	assert.Equal(t, "Sam Shipping", sent.Name)
	assert.Equal(t, "GB", sent.Address.Country)
	assert.Equal(t, "payer@example.com", sent.Email)

	// a second capture call is answered without a second vendor order
	code, _ = f.capture(resp.PayPalOrderID)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, f.prodigi.calls())
}

func TestPayPal_CaptureNotCompleted(t *testing.T) {
	f := newPayPalFixture()
	f.paypal.captureStatus = "PAYER_ACTION_REQUIRED"
	resp := f.create(t, "poster-a3")

	code, _ := f.capture(resp.PayPalOrderID)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Zero(t, f.prodigi.calls())
}

func TestPayPal_CaptureAlreadyCaptured(t *testing.T) {
	f := newPayPalFixture()
	resp := f.create(t, "poster-a3")
	f.paypal.captureErr = &paypal.APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Name:       "UNPROCESSABLE_ENTITY",
		Body:       []byte(`{"details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`),
	}

	code, body := f.capture(resp.PayPalOrderID)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, 1, f.paypal.gets)
	assert.Equal(t, 1, f.prodigi.calls())

	var oc orders.Context
	require.NoError(t, json.Unmarshal(body, &oc))
	assert.Equal(t, orders.StatusFulfilled, oc.Status)
}

func TestPayPal_CaptureUnknownOrder(t *testing.T) {
	f := newPayPalFixture()

	code, _ := f.capture("PP-UNKNOWN")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Zero(t, f.paypal.captures)
}

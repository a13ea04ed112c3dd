package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
	"github.com/loganlanou/aigifts/internal/stripe"
)

const testWebhookSecret = "whsec_test_secret"

// fakeStripe creates sessions locally and verifies webhooks with the real
// signature check.
type fakeStripe struct {
	*stripe.Service
	requests []stripe.CheckoutRequest
	sessions map[string]*stripego.CheckoutSession
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{
		Service:  stripe.NewService(stripe.Config{SecretKey: "sk_test", WebhookSecret: testWebhookSecret}),
		sessions: make(map[string]*stripego.CheckoutSession),
	}
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, req stripe.CheckoutRequest) (*stripego.CheckoutSession, error) {
	f.requests = append(f.requests, req)
	s := &stripego.CheckoutSession{
		ID:  "cs_test_" + gofakeit.LetterN(8),
		URL: "https://checkout.stripe.com/c/pay/test",
	}
	return s, nil
}

func (f *fakeStripe) GetCheckoutSession(_ context.Context, id string) (*stripego.CheckoutSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

func completedSession(orderID string) *stripego.CheckoutSession {
	addr := gofakeit.Address()
	return &stripego.CheckoutSession{
		ID:                "cs_test_" + gofakeit.LetterN(8),
		PaymentStatus:     stripego.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: orderID,
		Metadata: map[string]string{
			stripe.MetaOrderID:   orderID,
			stripe.MetaFileURL:   "https://cdn.example.com/assets/job-poster-a3.png",
			stripe.MetaProductID: "poster-a3",
			stripe.MetaImageID:   "01JTESTIMAGE",
		},
		CustomerDetails: &stripego.CheckoutSessionCustomerDetails{Email: gofakeit.Email()},
		ShippingDetails: &stripego.ShippingDetails{
			Name: gofakeit.Name(),
			Address: &stripego.Address{
				Line1:      addr.Street,
				City:       addr.City,
				State:      addr.State,
				PostalCode: addr.Zip,
				Country:    "US",
			},
		},
	}
}

func signedEvent(t *testing.T, eventType string, session *stripego.CheckoutSession) ([]byte, string) {
	t.Helper()
	sessionJSON, err := json.Marshal(session)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_" + gofakeit.LetterN(8),
		"object": "event",
		"type":   eventType,
		"data":   map[string]any{"object": json.RawMessage(sessionJSON)},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

type paymentFixture struct {
	handler *PaymentHandler
	stripe  *fakeStripe
	orders  *orders.MemoryStore
	gelato  *stubProvider
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		stripe: newFakeStripe(),
		orders: orders.NewMemoryStore(),
		gelato: &stubProvider{name: catalog.VendorGelato},
	}
	d := fulfillment.NewDispatcher(f.orders, f.gelato)
	f.handler = NewPaymentHandler(f.stripe, f.orders, d)
	return f
}

func (f *paymentFixture) postWebhook(t *testing.T, payload []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	Serve(c, f.handler.HandleWebhook)
	return rec
}

func TestCreateCheckout(t *testing.T) {
	f := newPaymentFixture()

	c, rec := NewTestContext(http.MethodPost, "/api/checkout/stripe", CheckoutRequest{
		ProductID: "poster-a3",
		ImageID:   "01JTESTIMAGE",
		FileURL:   "https://cdn.example.com/a.png",
		Email:     "buyer@example.com",
	})
	require.NoError(t, f.handler.CreateCheckout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StripeCheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.NotEmpty(t, resp.URL)

	require.Len(t, f.stripe.requests, 1)
	assert.Equal(t, resp.OrderID, f.stripe.requests[0].OrderID)
	assert.Equal(t, "poster-a3", f.stripe.requests[0].Product.ID)

	oc, err := f.orders.GetByPaymentRef(context.Background(), orders.ProviderStripe, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.OrderID, oc.ID)
	assert.Equal(t, orders.StatusCreated, oc.Status)
}

func TestCreateCheckout_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  CheckoutRequest
	}{
		{"missing file url", CheckoutRequest{ProductID: "poster-a3", ImageID: "img"}},
		{"missing image", CheckoutRequest{ProductID: "poster-a3", FileURL: "https://x/a.png"}},
		{"unknown product", CheckoutRequest{ProductID: "mug", ImageID: "img", FileURL: "https://x/a.png"}},
		{"not stocked by gelato", CheckoutRequest{ProductID: "cushion-45", ImageID: "img", FileURL: "https://x/a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			c, rec := NewTestContext(http.MethodPost, "/api/checkout/stripe", tt.req)
			Serve(c, f.handler.CreateCheckout)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.stripe.requests)
		})
	}
}

func TestWebhook_DispatchesOnce(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	require.NoError(t, f.orders.Create(ctx, orders.Context{
		ID:        "order-1",
		ImageID:   "01JTESTIMAGE",
		ProductID: "poster-a3",
		FileURL:   "https://cdn.example.com/assets/job-poster-a3.png",
		Provider:  orders.ProviderStripe,
	}))

	session := completedSession("order-1")
	payload, sig := signedEvent(t, stripe.EventCheckoutCompleted, session)

	for i := 0; i < 2; i++ {
		rec := f.postWebhook(t, payload, sig)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, 1, f.gelato.calls(), "redelivered webhook must not submit twice")
	sent := f.gelato.submitted[0]
	ship := session.ShippingDetails.Address
	assert.Equal(t, ship.Line1, sent.Address.Line1)
	assert.Equal(t, ship.City, sent.Address.City)
	assert.Equal(t, ship.PostalCode, sent.Address.PostalCode)
	assert.Equal(t, "US", sent.Address.Country)
	assert.Equal(t, session.ShippingDetails.Name, sent.Name)

	oc, err := f.orders.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFulfilled, oc.Status)
	assert.Equal(t, "gelato-order-1", oc.VendorOrderID)
}

func TestWebhook_MissingFileURLIsSkipped(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	require.NoError(t, f.orders.Create(ctx, orders.Context{ID: "order-2", Provider: orders.ProviderStripe}))

	session := completedSession("order-2")
	delete(session.Metadata, stripe.MetaFileURL)
	payload, sig := signedEvent(t, stripe.EventCheckoutCompleted, session)

	rec := f.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.gelato.calls())

	oc, err := f.orders.Get(ctx, "order-2")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusSkipped, oc.Status)
	assert.Contains(t, oc.Error, "fileUrl")
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newPaymentFixture()
	payload, _ := signedEvent(t, stripe.EventCheckoutCompleted, completedSession("order-3"))

	rec := f.postWebhook(t, payload, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.gelato.calls())
}

func TestWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()
	payload, sig := signedEvent(t, "checkout.session.expired", completedSession("order-4"))

	rec := f.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.gelato.calls())
}

func TestConfirmCheckout(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	require.NoError(t, f.orders.Create(ctx, orders.Context{ID: "order-5", Provider: orders.ProviderStripe}))

	session := completedSession("order-5")
	f.stripe.sessions[session.ID] = session

	c, rec := NewTestContext(http.MethodGet, "/api/checkout/confirm?session_id="+session.ID, nil)
	require.NoError(t, f.handler.ConfirmCheckout(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var oc orders.Context
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &oc))
	assert.Equal(t, orders.StatusFulfilled, oc.Status)
	assert.Equal(t, 1, f.gelato.calls())

	unpaid := completedSession("order-6")
	unpaid.PaymentStatus = stripego.CheckoutSessionPaymentStatusUnpaid
	f.stripe.sessions[unpaid.ID] = unpaid

	c, rec = NewTestContext(http.MethodGet, "/api/checkout/confirm?session_id="+unpaid.ID, nil)
	Serve(c, f.handler.ConfirmCheckout)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

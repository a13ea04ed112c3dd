package stripe

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/catalog"
)

func paidSession() *stripe.CheckoutSession {
	addr := gofakeit.Address()
	return &stripe.CheckoutSession{
		ID:            "cs_test_" + gofakeit.LetterN(10),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Currency:      stripe.CurrencyUSD,
		Metadata: map[string]string{
			MetaOrderID:   gofakeit.UUID(),
			MetaFileURL:   "https://cdn.example.com/results/abc.png",
			MetaProductID: "poster-a3",
			MetaImageID:   "01HZX3K5V8Q9",
		},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: gofakeit.Email(),
			Name:  "Billing Name",
			Phone: gofakeit.Phone(),
		},
		ShippingDetails: &stripe.ShippingDetails{
			Name: gofakeit.Name(),
			Address: &stripe.Address{
				Line1:      addr.Street,
				Line2:      "Unit 4",
				City:       addr.City,
				State:      addr.State,
				PostalCode: addr.Zip,
				Country:    "US",
			},
		},
	}
}

func TestOrderFromSession_MapsShippingAddress(t *testing.T) {
	session := paidSession()

	order, err := OrderFromSession(session)
	require.NoError(t, err)

	ship := session.ShippingDetails.Address
	assert.Equal(t, ship.Line1, order.Address.Line1)
	assert.Equal(t, ship.Line2, order.Address.Line2)
	assert.Equal(t, ship.City, order.Address.City)
	assert.Equal(t, ship.State, order.Address.State)
	assert.Equal(t, ship.PostalCode, order.Address.PostalCode)
	assert.Equal(t, ship.Country, order.Address.Country)
	assert.Equal(t, session.ShippingDetails.Name, order.Name)
	assert.Equal(t, session.CustomerDetails.Email, order.Email)

	assert.Equal(t, session.Metadata[MetaOrderID], order.OrderID)
	assert.Equal(t, session.Metadata[MetaFileURL], order.FileURL)
	assert.Equal(t, session.Metadata[MetaImageID], order.ImageID)

	product, _ := catalog.Lookup("poster-a3")
	assert.Equal(t, product.GelatoUID, order.ProductIdentifier)
	assert.NoError(t, order.Validate())
}

func TestOrderFromSession_FallsBackToCustomerAddress(t *testing.T) {
	session := paidSession()
	session.CustomerDetails.Address = session.ShippingDetails.Address
	session.ShippingDetails = nil

	order, err := OrderFromSession(session)
	require.NoError(t, err)
	assert.Equal(t, "Billing Name", order.Name)
	assert.Equal(t, session.CustomerDetails.Address.Line1, order.Address.Line1)
}

func TestOrderFromSession_MissingMetadataFailsValidation(t *testing.T) {
	session := paidSession()
	delete(session.Metadata, MetaFileURL)

	order, err := OrderFromSession(session)
	require.NoError(t, err)
	assert.True(t, errors.Is(order.Validate(), apperr.ErrValidation))
}

func TestOrderFromSession_Unpaid(t *testing.T) {
	session := paidSession()
	session.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid

	_, err := OrderFromSession(session)
	assert.True(t, errors.Is(err, ErrNotPaid))
}

func TestSessionParams(t *testing.T) {
	svc := NewService(Config{
		SecretKey:        "sk_test_123",
		SuccessURL:       "https://shop.example.com/api/checkout/confirm?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        "https://shop.example.com/",
		AllowedCountries: []string{"us", "gb"},
	})
	product, ok := catalog.Lookup("canvas-30x40")
	require.True(t, ok)

	params := svc.SessionParams(CheckoutRequest{
		OrderID: "order-1",
		Product: product,
		ImageID: "img-1",
		FileURL: "https://cdn.example.com/a.png",
		Email:   "buyer@example.com",
	})

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "order-1", *params.ClientReferenceID)
	assert.Equal(t, "buyer@example.com", *params.CustomerEmail)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, product.PriceCents, *params.LineItems[0].PriceData.UnitAmount)
	require.Len(t, params.ShippingAddressCollection.AllowedCountries, 2)
	assert.Equal(t, "US", *params.ShippingAddressCollection.AllowedCountries[0])
	assert.Equal(t, map[string]string{
		MetaOrderID:   "order-1",
		MetaFileURL:   "https://cdn.example.com/a.png",
		MetaProductID: "canvas-30x40",
		MetaImageID:   "img-1",
	}, params.Metadata)
}

func TestParseWebhook(t *testing.T) {
	session := paidSession()
	sessionJSON, err := json.Marshal(session)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":     "evt_test_1",
		"object": "event",
		"type":   EventCheckoutCompleted,
		"data":   map[string]any{"object": json.RawMessage(sessionJSON)},
	})
	require.NoError(t, err)

	t.Run("valid signature", func(t *testing.T) {
		svc := NewService(Config{SecretKey: "sk_test", WebhookSecret: "whsec_test"})
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    "whsec_test",
			Timestamp: time.Now(),
		})

		event, err := svc.ParseWebhook(payload, signed.Header)
		require.NoError(t, err)
		assert.Equal(t, stripe.EventType(EventCheckoutCompleted), event.Type)

		got, err := SessionFromEvent(event)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.Metadata, got.Metadata)
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := NewService(Config{SecretKey: "sk_test", WebhookSecret: "whsec_test"})
		_, err := svc.ParseWebhook(payload, "t=1,v1=deadbeef")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("no secret configured", func(t *testing.T) {
		svc := NewService(Config{SecretKey: "sk_test"})
		event, err := svc.ParseWebhook(payload, "")
		require.NoError(t, err)
		assert.Equal(t, "evt_test_1", event.ID)
	})
}

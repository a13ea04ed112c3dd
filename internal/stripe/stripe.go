package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
)

const (
	MetaOrderID   = "order_id"
	MetaFileURL   = "file_url"
	MetaProductID = "product_id"
	MetaImageID   = "image_id"

	EventCheckoutCompleted = "checkout.session.completed"
)

var ErrNotPaid = errors.New("checkout session not paid")

type Config struct {
	SecretKey        string
	WebhookSecret    string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	// APIURL overrides the Stripe API base URL. Empty means api.stripe.com.
	APIURL string
}

type Service struct {
	api *client.API
	cfg Config
}

func NewService(cfg Config) *Service {
	var backends *stripe.Backends
	if cfg.APIURL != "" {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(cfg.APIURL),
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	if len(cfg.AllowedCountries) == 0 {
		cfg.AllowedCountries = []string{"US", "GB", "CA", "AU", "DE", "FR", "NL", "IE"}
	}
	return &Service{
		api: client.New(cfg.SecretKey, backends),
		cfg: cfg,
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.SecretKey != ""
}

type CheckoutRequest struct {
	OrderID string
	Product catalog.Product
	ImageID string
	FileURL string
	Email   string
}

// SessionParams builds the Checkout Session for a single printed product. The
// order context travels in metadata so the webhook can rebuild the order.
func (s *Service) SessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	countries := make([]*string, 0, len(s.cfg.AllowedCountries))
	for _, c := range s.cfg.AllowedCountries {
		countries = append(countries, stripe.String(strings.ToUpper(c)))
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Product.Currency)),
					UnitAmount: stripe.Int64(req.Product.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Product.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: countries,
		},
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	params.Metadata = map[string]string{
		MetaOrderID:   req.OrderID,
		MetaFileURL:   req.FileURL,
		MetaProductID: req.Product.ID,
		MetaImageID:   req.ImageID,
	}
	return params
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*stripe.CheckoutSession, error) {
	params := s.SessionParams(req)
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w: %w", apperr.ErrUpstream, err)
	}

	slog.Info("created stripe checkout session",
		"session_id", session.ID,
		"order_id", req.OrderID,
		"product_id", req.Product.ID)
	return session, nil
}

// GetCheckoutSession retrieves a session with its line items expanded.
func (s *Service) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	session, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, fmt.Errorf("checkout session %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get checkout session %s: %w: %w", id, apperr.ErrUpstream, err)
	}
	return session, nil
}

// ParseWebhook verifies the Stripe-Signature header. Without a webhook secret
// the payload is parsed unverified, which is only meant for local development.
func (s *Service) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	var event stripe.Event
	if s.cfg.WebhookSecret == "" {
		if err := json.Unmarshal(payload, &event); err != nil {
			return event, fmt.Errorf("parse webhook: %w: %w", apperr.ErrValidation, err)
		}
		return event, nil
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return event, fmt.Errorf("verify webhook signature: %w: %w", apperr.ErrValidation, err)
	}
	return event, nil
}

// SessionFromEvent decodes the checkout session carried by a webhook event.
func SessionFromEvent(event stripe.Event) (*stripe.CheckoutSession, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data: %w", event.ID, apperr.ErrValidation)
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w: %w", apperr.ErrValidation, err)
	}
	return &session, nil
}

// OrderFromSession normalizes a completed session into a Gelato order.
// Missing metadata is left empty for the dispatcher to reject.
func OrderFromSession(session *stripe.CheckoutSession) (fulfillment.Order, error) {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		session.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		return fulfillment.Order{}, fmt.Errorf("session %s status %q: %w", session.ID, session.PaymentStatus, ErrNotPaid)
	}

	meta := session.Metadata
	order := fulfillment.Order{
		OrderID:   meta[MetaOrderID],
		FileURL:   meta[MetaFileURL],
		ProductID: meta[MetaProductID],
		ImageID:   meta[MetaImageID],
		Currency:  string(session.Currency),
	}
	if order.OrderID == "" {
		order.OrderID = session.ClientReferenceID
	}
	if product, ok := catalog.Lookup(order.ProductID); ok {
		order.ProductIdentifier = product.VendorIdentifier(catalog.VendorGelato)
	}

	var addr *stripe.Address
	if session.ShippingDetails != nil {
		order.Name = session.ShippingDetails.Name
		addr = session.ShippingDetails.Address
	}
	if cd := session.CustomerDetails; cd != nil {
		order.Email = cd.Email
		order.Phone = cd.Phone
		if order.Name == "" {
			order.Name = cd.Name
		}
		if addr == nil {
			addr = cd.Address
		}
	}
	if order.Email == "" {
		order.Email = session.CustomerEmail
	}
	if addr != nil {
		order.Address = fulfillment.Address{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		}
	}
	return order, nil
}

package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/loganlanou/aigifts/internal/catalog"
)

const GelatoBaseURL = "https://order.gelatoapis.com"

type GelatoClient struct {
	shipmentMethodUID string
	submitter         *submitter
}

type GelatoConfig struct {
	APIKey            string
	BaseURL           string
	ShipmentMethodUID string
}

func NewGelatoClient(cfg GelatoConfig) *GelatoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GelatoBaseURL
	}
	return &GelatoClient{
		shipmentMethodUID: cfg.ShipmentMethodUID,
		submitter:         newSubmitter(catalog.VendorGelato, map[string]string{"X-API-KEY": cfg.APIKey}, cfg.BaseURL),
	}
}

func (c *GelatoClient) Name() string {
	return catalog.VendorGelato
}

type GelatoAddress struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	State        string `json:"state,omitempty"`
	City         string `json:"city"`
	PostCode     string `json:"postCode"`
	Country      string `json:"country"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type GelatoFile struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type GelatoItem struct {
	ItemReferenceID string       `json:"itemReferenceId"`
	ProductUID      string       `json:"productUid"`
	Files           []GelatoFile `json:"files"`
	Quantity        int          `json:"quantity"`
}

type GelatoOrderRequest struct {
	OrderType           string        `json:"orderType"`
	OrderReferenceID    string        `json:"orderReferenceId"`
	CustomerReferenceID string        `json:"customerReferenceId"`
	Currency            string        `json:"currency"`
	Items               []GelatoItem  `json:"items"`
	ShipmentMethodUID   string        `json:"shipmentMethodUid,omitempty"`
	ShippingAddress     GelatoAddress `json:"shippingAddress"`
}

type gelatoOrderResponse struct {
	ID                string `json:"id"`
	OrderReferenceID  string `json:"orderReferenceId"`
	FulfillmentStatus string `json:"fulfillmentStatus"`
	FinancialStatus   string `json:"financialStatus"`
}

// BuildGelatoOrder maps a normalized order onto Gelato's v4 order payload.
func BuildGelatoOrder(order Order, shipmentMethodUID string) GelatoOrderRequest {
	first, last := splitName(order.Name)
	currency := strings.ToUpper(order.Currency)
	if currency == "" {
		currency = "USD"
	}
	customerRef := order.Email
	if customerRef == "" {
		customerRef = order.OrderID
	}

	return GelatoOrderRequest{
		OrderType:           "order",
		OrderReferenceID:    order.OrderID,
		CustomerReferenceID: customerRef,
		Currency:            currency,
		Items: []GelatoItem{
			{
				ItemReferenceID: order.ImageID,
				ProductUID:      order.ProductIdentifier,
				Files: []GelatoFile{
					{Type: "default", URL: order.FileURL},
				},
				Quantity: order.quantity(),
			},
		},
		ShipmentMethodUID: shipmentMethodUID,
		ShippingAddress: GelatoAddress{
			FirstName:    first,
			LastName:     last,
			AddressLine1: order.Address.Line1,
			AddressLine2: order.Address.Line2,
			State:        order.Address.State,
			City:         order.Address.City,
			PostCode:     order.Address.PostalCode,
			Country:      strings.ToUpper(order.Address.Country),
			Email:        order.Email,
			Phone:        order.Phone,
		},
	}
}

func (c *GelatoClient) SubmitOrder(ctx context.Context, order Order) (*Result, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	payload := BuildGelatoOrder(order, c.shipmentMethodUID)
	slog.Info("submitting gelato order",
		"order_id", order.OrderID,
		"product_uid", payload.Items[0].ProductUID,
		"country", payload.ShippingAddress.Country)

	body, err := c.submitter.post(ctx, "/v4/orders", payload)
	if err != nil {
		return &Result{Vendor: c.Name(), Raw: rawOrNil(body)}, err
	}
	return c.parse(body)
}

func (c *GelatoClient) GetOrder(ctx context.Context, vendorOrderID string) (*Result, error) {
	body, err := c.submitter.get(ctx, "/v4/orders/"+url.PathEscape(vendorOrderID))
	if err != nil {
		return &Result{Vendor: c.Name(), Raw: rawOrNil(body)}, err
	}
	return c.parse(body)
}

func (c *GelatoClient) parse(body []byte) (*Result, error) {
	var resp gelatoOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal gelato response: %w", err)
	}
	return &Result{
		Vendor:        c.Name(),
		VendorOrderID: resp.ID,
		Status:        resp.FulfillmentStatus,
		Raw:           body,
	}, nil
}

func rawOrNil(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return body
}

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

const (
	ProdigiSandboxURL = "https://api.sandbox.prodigi.com"
	ProdigiLiveURL    = "https://api.prodigi.com"
)

type ProdigiConfig struct {
	APIKey         string
	StagingURL     string
	BaseURL        string
	ShippingMethod string
}

// ProdigiClient submits orders to the sandbox first and retries against live
// when the sandbox rejects or cannot be reached.
type ProdigiClient struct {
	shippingMethod string
	submitter      *submitter
}

func NewProdigiClient(cfg ProdigiConfig) *ProdigiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ProdigiLiveURL
	}
	if cfg.ShippingMethod == "" {
		cfg.ShippingMethod = "Standard"
	}
	return &ProdigiClient{
		shippingMethod: cfg.ShippingMethod,
		submitter: newSubmitter(catalog.VendorProdigi,
			map[string]string{"X-API-Key": cfg.APIKey},
			cfg.StagingURL, cfg.BaseURL),
	}
}

func (c *ProdigiClient) Name() string {
	return catalog.VendorProdigi
}

type ProdigiAddress struct {
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	PostalOrZip   string `json:"postalOrZipCode"`
	CountryCode   string `json:"countryCode"`
	TownOrCity    string `json:"townOrCity"`
	StateOrCounty string `json:"stateOrCounty,omitempty"`
}

type ProdigiRecipient struct {
	Name        string         `json:"name"`
	Email       string         `json:"email,omitempty"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
	Address     ProdigiAddress `json:"address"`
}

type ProdigiAsset struct {
	PrintArea string `json:"printArea"`
	URL       string `json:"url"`
}

type ProdigiItem struct {
	MerchantReference string         `json:"merchantReference"`
	SKU               string         `json:"sku"`
	Copies            int            `json:"copies"`
	Sizing            string         `json:"sizing"`
	Assets            []ProdigiAsset `json:"assets"`
}

type ProdigiOrderRequest struct {
	MerchantReference string           `json:"merchantReference"`
	ShippingMethod    string           `json:"shippingMethod"`
	Recipient         ProdigiRecipient `json:"recipient"`
	Items             []ProdigiItem    `json:"items"`
}

type prodigiOrderResponse struct {
	Outcome string `json:"outcome"`
	Order   struct {
		ID     string `json:"id"`
		Status struct {
			Stage string `json:"stage"`
		} `json:"status"`
	} `json:"order"`
}

// BuildProdigiOrder maps a normalized order onto Prodigi's v4.0 order payload.
func BuildProdigiOrder(order Order, shippingMethod string) ProdigiOrderRequest {
	return ProdigiOrderRequest{
		MerchantReference: order.OrderID,
		ShippingMethod:    shippingMethod,
		Recipient: ProdigiRecipient{
			Name:        strings.TrimSpace(order.Name),
			Email:       order.Email,
			PhoneNumber: order.Phone,
			Address: ProdigiAddress{
				Line1:         order.Address.Line1,
				Line2:         order.Address.Line2,
				PostalOrZip:   order.Address.PostalCode,
				CountryCode:   strings.ToUpper(order.Address.Country),
				TownOrCity:    order.Address.City,
				StateOrCounty: order.Address.State,
			},
		},
		Items: []ProdigiItem{
			{
				MerchantReference: order.ImageID,
				SKU:               order.ProductIdentifier,
				Copies:            order.quantity(),
				Sizing:            "fillPrintArea",
				Assets: []ProdigiAsset{
					{PrintArea: "default", URL: order.FileURL},
				},
			},
		},
	}
}

func (c *ProdigiClient) SubmitOrder(ctx context.Context, order Order) (*Result, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	payload := BuildProdigiOrder(order, c.shippingMethod)
	slog.Info("submitting prodigi order",
		"order_id", order.OrderID,
		"sku", payload.Items[0].SKU,
		"country", payload.Recipient.Address.CountryCode)

	body, err := c.submitter.post(ctx, "/v4.0/Orders", payload)
	if err != nil {
		return &Result{Vendor: c.Name(), Raw: rawOrNil(body)}, err
	}
	return c.parse(body)
}

func (c *ProdigiClient) GetOrder(ctx context.Context, vendorOrderID string) (*Result, error) {
	body, err := c.submitter.get(ctx, "/v4.0/Orders/"+url.PathEscape(vendorOrderID))
	if err != nil {
		return &Result{Vendor: c.Name(), Raw: rawOrNil(body)}, err
	}
	return c.parse(body)
}

func (c *ProdigiClient) parse(body []byte) (*Result, error) {
	var resp prodigiOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal prodigi response: %w", err)
	}
	status := resp.Order.Status.Stage
	if status == "" {
		status = resp.Outcome
	}
	return &Result{
		Vendor:        c.Name(),
		VendorOrderID: resp.Order.ID,
		Status:        status,
		Raw:           body,
	}, nil
}

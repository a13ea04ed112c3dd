package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/loganlanou/aigifts/internal/apperr"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	defaultTimeout = 30 * time.Second
	// tokens are refreshed this long before PayPal says they expire
	tokenSkew = 60 * time.Second
)

type Config struct {
	ClientID  string
	Secret    string
	BaseURL   string
	ReturnURL string
	CancelURL string
	BrandName string
}

// Client talks to the PayPal Orders v2 REST API.
type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
		now:    time.Now,
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.ClientID != "" && c.cfg.Secret != ""
}

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Name struct {
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

type Address struct {
	AddressLine1 string `json:"address_line_1,omitempty"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	AdminArea2   string `json:"admin_area_2,omitempty"`
	AdminArea1   string `json:"admin_area_1,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

type Shipping struct {
	Name    *Name    `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      *Money    `json:"amount,omitempty"`
	Shipping    *Shipping `json:"shipping,omitempty"`
}

type Payer struct {
	PayerID      string `json:"payer_id,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Name         *Name  `json:"name,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Order is the subset of a PayPal order the storefront reads.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         *Payer         `json:"payer,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Links         []Link         `json:"links,omitempty"`
}

// ApproveURL is where the buyer is sent to approve the payment.
func (o *Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

type CreateOrderRequest struct {
	ReferenceID string
	AmountCents int64
	Currency    string
	Description string
}

type applicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	ShippingPreference string `json:"shipping_preference"`
	UserAction         string `json:"user_action"`
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
}

type createOrderBody struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []PurchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

// APIError is a non-2xx response from PayPal.
type APIError struct {
	StatusCode int
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
	Body       []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal returned status %d: %s: %s (debug_id=%s)", e.StatusCode, e.Name, e.Message, e.DebugID)
	}
	return fmt.Sprintf("paypal returned status %d: %s", e.StatusCode, string(e.Body))
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	return apperr.ErrUpstream
}

// AlreadyCaptured reports whether err is PayPal refusing a capture because an
// earlier request already captured the order.
func AlreadyCaptured(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusUnprocessableEntity &&
		bytes.Contains(apiErr.Body, []byte("ORDER_ALREADY_CAPTURED"))
}

// FormatAmount renders cents the way PayPal expects amounts, e.g. 2499 -> "24.99".
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []PurchaseUnit{
			{
				ReferenceID: req.ReferenceID,
				CustomID:    req.ReferenceID,
				Description: req.Description,
				Amount: &Money{
					CurrencyCode: currency,
					Value:        FormatAmount(req.AmountCents),
				},
			},
		},
		ApplicationContext: applicationContext{
			BrandName:          c.cfg.BrandName,
			ShippingPreference: "GET_FROM_FILE",
			UserAction:         "PAY_NOW",
			ReturnURL:          c.cfg.ReturnURL,
			CancelURL:          c.cfg.CancelURL,
		},
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, "", &order); err != nil {
		return nil, fmt.Errorf("create paypal order: %w", err)
	}
	slog.Info("created paypal order", "paypal_order_id", order.ID, "reference_id", req.ReferenceID, "status", order.Status)
	return &order, nil
}

// CaptureOrder captures an approved order. The PayPal order ID doubles as the
// request ID so a repeated capture is answered from PayPal's idempotency cache.
func (c *Client) CaptureOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	path := "/v2/checkout/orders/" + url.PathEscape(id) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, "capture-"+id, &order); err != nil {
		return nil, fmt.Errorf("capture paypal order %s: %w", id, err)
	}
	slog.Info("captured paypal order", "paypal_order_id", order.ID, "status", order.Status)
	return &order, nil
}

// GetOrder fetches an order's current state, payer and shipping included.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(id), nil, "", &order); err != nil {
		return nil, fmt.Errorf("get paypal order %s: %w", id, err)
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, requestID string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	return c.send(req, out)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns a cached client-credentials token, fetching a new one
// when the cached one is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	if !c.Enabled() {
		return "", fmt.Errorf("paypal credentials not configured: %w", apperr.ErrUpstream)
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := c.send(req, &tok); err != nil {
		return "", fmt.Errorf("fetch paypal token: %w", err)
	}

	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSkew)
	slog.Debug("refreshed paypal access token", "expires_at", c.expiresAt)
	return c.token, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("paypal request failed: %w: %w", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: body}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

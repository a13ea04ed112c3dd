package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/loganlanou/aigifts/internal/apperr"
)

var (
	// ErrSkipped means the order was missing data and nothing was sent to a vendor.
	ErrSkipped = errors.New("fulfillment skipped")
	// ErrAlreadyDispatched means another delivery of the same payment got there first.
	ErrAlreadyDispatched = errors.New("order already dispatched")
	// ErrCheckoutOrder means a direct submission reused the ID of a checkout order.
	ErrCheckoutOrder = errors.New("order belongs to a checkout")
	ErrUnknownVendor = errors.New("unknown fulfillment vendor")
)

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is the vendor-neutral shape every payment path is normalized into.
type Order struct {
	OrderID           string  `json:"order_id"`
	Email             string  `json:"email,omitempty"`
	Name              string  `json:"name"`
	Phone             string  `json:"phone,omitempty"`
	Address           Address `json:"address"`
	FileURL           string  `json:"file_url"`
	ProductID         string  `json:"product_id,omitempty"`
	ProductIdentifier string  `json:"product_identifier"`
	ImageID           string  `json:"image_id"`
	Quantity          int     `json:"quantity,omitempty"`
	Currency          string  `json:"currency,omitempty"`
}

// MissingFieldError names the first required field an order lacks.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return apperr.ErrValidation
}

// Validate checks the fields every vendor needs.
func (o Order) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"fileUrl", o.FileURL},
		{"productIdentifier", o.ProductIdentifier},
		{"imageId", o.ImageID},
		{"name", o.Name},
		{"address.line1", o.Address.Line1},
		{"address.city", o.Address.City},
		{"address.postalCode", o.Address.PostalCode},
		{"address.country", o.Address.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	return nil
}

func (o Order) quantity() int {
	if o.Quantity <= 0 {
		return 1
	}
	return o.Quantity
}

// Result is what a vendor said about an order. Raw is the vendor's response body.
type Result struct {
	Vendor        string          `json:"vendor"`
	VendorOrderID string          `json:"vendor_order_id"`
	Status        string          `json:"status"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Provider is a print-on-demand vendor.
type Provider interface {
	Name() string
	SubmitOrder(ctx context.Context, order Order) (*Result, error)
	GetOrder(ctx context.Context, vendorOrderID string) (*Result, error)
}

// VendorError is a non-success response from a vendor API.
type VendorError struct {
	Vendor     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *VendorError) Error() string {
	body := string(e.Body)
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Vendor, e.StatusCode, body)
}

func (e *VendorError) Unwrap() error {
	if e.StatusCode == 404 {
		return apperr.ErrNotFound
	}
	return apperr.ErrUpstream
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, found := strings.Cut(full, " ")
	if !found {
		return full, ""
	}
	return first, strings.TrimSpace(last)
}

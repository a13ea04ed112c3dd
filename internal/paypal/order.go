package paypal

import (
	"strings"

	"github.com/loganlanou/aigifts/internal/catalog"
	"github.com/loganlanou/aigifts/internal/fulfillment"
	"github.com/loganlanou/aigifts/internal/orders"
)

const StatusCompleted = "COMPLETED"

// OrderFromCapture joins a captured PayPal order with the stored order
// context into a Prodigi order. PayPal's custom_id is too short to carry the
// file URL, so the context supplies it.
func OrderFromCapture(capture *Order, oc orders.Context) fulfillment.Order {
	order := fulfillment.Order{
		OrderID:   oc.ID,
		Email:     oc.Email,
		FileURL:   oc.FileURL,
		ProductID: oc.ProductID,
		ImageID:   oc.ImageID,
	}
	if product, ok := catalog.Lookup(oc.ProductID); ok {
		order.ProductIdentifier = product.VendorIdentifier(catalog.VendorProdigi)
		order.Currency = product.Currency
	}

	if p := capture.Payer; p != nil {
		if p.EmailAddress != "" {
			order.Email = p.EmailAddress
		}
		if p.Name != nil {
			order.Name = strings.TrimSpace(p.Name.GivenName + " " + p.Name.Surname)
		}
	}

	for _, unit := range capture.PurchaseUnits {
		if unit.Shipping == nil {
			continue
		}
		if unit.Shipping.Name != nil && unit.Shipping.Name.FullName != "" {
			order.Name = unit.Shipping.Name.FullName
		}
		if a := unit.Shipping.Address; a != nil {
			order.Address = fulfillment.Address{
				Line1:      a.AddressLine1,
				Line2:      a.AddressLine2,
				City:       a.AdminArea2,
				State:      a.AdminArea1,
				PostalCode: a.PostalCode,
				Country:    a.CountryCode,
			}
		}
		break
	}
	return order
}

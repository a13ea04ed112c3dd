package catalog

import "sort"

type Kind string

const (
	KindPoster  Kind = "poster"
	KindCard    Kind = "card"
	KindCushion Kind = "cushion"
	KindCanvas  Kind = "canvas"
)

const (
	VendorGelato  = "gelato"
	VendorProdigi = "prodigi"
)

// Product is a printable item. GelatoUID and ProdigiSKU identify the same
// physical product at each vendor.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	GelatoUID   string `json:"gelato_uid"`
	ProdigiSKU  string `json:"prodigi_sku"`
	WidthMM     int    `json:"width_mm"`
	HeightMM    int    `json:"height_mm"`
	Orientation string `json:"orientation"`
}

// VendorIdentifier returns the product identifier the vendor expects, or ""
// when the vendor does not stock the product.
func (p Product) VendorIdentifier(vendor string) string {
	switch vendor {
	case VendorGelato:
		return p.GelatoUID
	case VendorProdigi:
		return p.ProdigiSKU
	default:
		return ""
	}
}

// AspectRatio is width over height.
func (p Product) AspectRatio() float64 {
	if p.HeightMM == 0 {
		return 1
	}
	return float64(p.WidthMM) / float64(p.HeightMM)
}

var products = map[string]Product{
	"poster-a3": {
		ID:          "poster-a3",
		Name:        "Poster A3",
		Kind:        KindPoster,
		PriceCents:  2499,
		Currency:    "usd",
		GelatoUID:   "flat_a3_170-gsm-65lb-uncoated_4-0_ver",
		ProdigiSKU:  "GLOBAL-FAP-A3",
		WidthMM:     297,
		HeightMM:    420,
		Orientation: "portrait",
	},
	"poster-50x70": {
		ID:          "poster-50x70",
		Name:        "Poster 50x70 cm",
		Kind:        KindPoster,
		PriceCents:  3999,
		Currency:    "usd",
		GelatoUID:   "flat_500x700-mm-20x28-inch_200-gsm-80lb-coated-silk_4-0_ver",
		ProdigiSKU:  "GLOBAL-FAP-50X70",
		WidthMM:     500,
		HeightMM:    700,
		Orientation: "portrait",
	},
	"card-a5": {
		ID:          "card-a5",
		Name:        "Greeting Card A5",
		Kind:        KindCard,
		PriceCents:  799,
		Currency:    "usd",
		GelatoUID:   "cards_pf_a5_pt_350-gsm-coated-silk_cl_4-4_ver",
		ProdigiSKU:  "GLOBAL-GRE-A5",
		WidthMM:     148,
		HeightMM:    210,
		Orientation: "portrait",
	},
	"cushion-45": {
		ID:          "cushion-45",
		Name:        "Cushion 45x45 cm",
		Kind:        KindCushion,
		PriceCents:  3499,
		Currency:    "usd",
		GelatoUID:   "",
		ProdigiSKU:  "GLOBAL-CUSH-18X18-SUE",
		WidthMM:     450,
		HeightMM:    450,
		Orientation: "square",
	},
	"canvas-30x40": {
		ID:          "canvas-30x40",
		Name:        "Canvas 30x40 cm",
		Kind:        KindCanvas,
		PriceCents:  5499,
		Currency:    "usd",
		GelatoUID:   "canvas_300x400-mm-12x16-inch_canvas_wood-fsc-slim_4-0_ver",
		ProdigiSKU:  "GLOBAL-CAN-12X16",
		WidthMM:     300,
		HeightMM:    400,
		Orientation: "portrait",
	},
}

// All returns the catalog sorted by kind then price.
func All() []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].PriceCents < out[j].PriceCents
	})
	return out
}

func Lookup(id string) (Product, bool) {
	p, ok := products[id]
	return p, ok
}

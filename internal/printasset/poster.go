package printasset

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/fogleman/gg"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/catalog"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

const (
	// PrintDPI is the resolution print files are rendered at.
	PrintDPI  = 150
	mmPerInch = 25.4
)

// Options carry the extras some products print.
type Options struct {
	Message string
	ShopURL string
}

// Build renders the print file for product. Cards are PDFs, everything else
// is a PNG cropped to the product's aspect ratio.
func Build(src []byte, product catalog.Product, opts Options) ([]byte, string, error) {
	switch product.Kind {
	case catalog.KindCard:
		data, err := BuildCardPDF(src, product, opts.Message, opts.ShopURL)
		return data, "application/pdf", err
	case catalog.KindPoster, catalog.KindCanvas, catalog.KindCushion:
		data, err := BuildPosterAsset(src, product)
		return data, "image/png", err
	default:
		return nil, "", fmt.Errorf("no print asset for product kind %q: %w", product.Kind, apperr.ErrValidation)
	}
}

// PixelSize is the product's print size at PrintDPI.
func PixelSize(product catalog.Product) (int, int) {
	w := int(float64(product.WidthMM) / mmPerInch * PrintDPI)
	h := int(float64(product.HeightMM) / mmPerInch * PrintDPI)
	return w, h
}

// BuildPosterAsset scales src to cover the product's print area, cropping
// the overflow evenly from both sides.
func BuildPosterAsset(src []byte, product catalog.Product) ([]byte, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}
	w, h := PixelSize(product)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("product %s has no print size: %w", product.ID, apperr.ErrValidation)
	}

	dc := gg.NewContext(w, h)
	drawCover(dc, img, 0, 0, float64(w), float64(h))

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCover draws img into the rectangle, scaled to cover it and centred.
func drawCover(dc *gg.Context, img image.Image, x, y, w, h float64) {
	srcW := float64(img.Bounds().Dx())
	srcH := float64(img.Bounds().Dy())
	scale := w / srcW
	if h/srcH > scale {
		scale = h / srcH
	}

	offsetX := x + (w-srcW*scale)/2
	offsetY := y + (h-srcH*scale)/2

	dc.Push()
	dc.DrawRectangle(x, y, w, h)
	dc.Clip()
	dc.Translate(offsetX, offsetY)
	dc.Scale(scale, scale)
	dc.DrawImage(img, -img.Bounds().Min.X, -img.Bounds().Min.Y)
	dc.ResetClip()
	dc.Pop()
}

func decode(src []byte) (image.Image, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("source image is empty: %w", apperr.ErrValidation)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w: %w", apperr.ErrValidation, err)
	}
	return img, nil
}

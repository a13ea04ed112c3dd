package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

const maxTintEdge = 1600

// Tint is the offline stand-in for the image model: the photo is scaled down,
// washed with a colour picked from the prompt and stamped with a PREVIEW mark.
func Tint(source []byte, prompt string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := 1.0
	if long := max(w, h); long > maxTintEdge {
		scale = float64(maxTintEdge) / float64(long)
	}
	outW, outH := int(float64(w)*scale), int(float64(h)*scale)

	dc := gg.NewContext(outW, outH)
	dc.Push()
	dc.Scale(scale, scale)
	dc.DrawImage(img, -img.Bounds().Min.X, -img.Bounds().Min.Y)
	dc.Pop()

	c := tintFor(prompt)
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(c.A))
	dc.DrawRectangle(0, 0, float64(outW), float64(outH))
	dc.Fill()

	grad := gg.NewRadialGradient(float64(outW)/2, float64(outH)/2, float64(min(outW, outH))/3,
		float64(outW)/2, float64(outH)/2, float64(max(outW, outH))*0.75)
	grad.AddColorStop(0, color.RGBA{0, 0, 0, 0})
	grad.AddColorStop(1, color.RGBA{0, 0, 0, 160})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(outW), float64(outH))
	dc.Fill()

	if font, err := truetype.Parse(gobold.TTF); err == nil {
		size := float64(min(outW, outH)) / 14
		dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
		dc.SetRGBA(1, 1, 1, 0.6)
		dc.DrawStringAnchored("PREVIEW", float64(outW)-size/2, float64(outH)-size/2, 1, 0)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode tinted image: %w", err)
	}
	return buf.Bytes(), nil
}

func tintFor(prompt string) color.RGBA {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "halloween") || strings.Contains(p, "pumpkin") || strings.Contains(p, "spooky"):
		return color.RGBA{255, 110, 0, 90}
	case strings.Contains(p, "christmas") || strings.Contains(p, "festive") || strings.Contains(p, "snow"):
		return color.RGBA{200, 30, 40, 80}
	default:
		return color.RGBA{120, 60, 200, 70}
	}
}

package printasset

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/loganlanou/aigifts/internal/catalog"
)

const (
	maxMessageLength = 400
	messageFontSize  = 40
	footerFontSize   = 22
)

// BuildCardPDF lays out a two page greeting card sized to the product:
// the artwork full bleed on the front, the message and a QR code back to
// the shop on the back.
func BuildCardPDF(src []byte, product catalog.Product, message, shopURL string) ([]byte, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}
	w, h := PixelSize(product)

	front := gg.NewContext(w, h)
	drawCover(front, img, 0, 0, float64(w), float64(h))
	frontPNG, err := encodePNG(front.Image())
	if err != nil {
		return nil, fmt.Errorf("encode card front: %w", err)
	}

	back, err := renderBack(w, h, message, shopURL)
	if err != nil {
		return nil, err
	}
	backPNG, err := encodePNG(back)
	if err != nil {
		return nil, fmt.Errorf("encode card back: %w", err)
	}

	pageW, pageH := float64(product.WidthMM), float64(product.HeightMM)
	orientation := "P"
	if pageW > pageH {
		orientation = "L"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(product.Name, true)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	for _, page := range []struct {
		name string
		data []byte
	}{{"front", frontPNG}, {"back", backPNG}} {
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(page.name, opts, bytes.NewReader(page.data))
		pdf.ImageOptions(page.name, 0, 0, pageW, pageH, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write card pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderBack(w, h int, message, shopURL string) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	message = strings.TrimSpace(message)
	if len(message) > maxMessageLength {
		message = message[:maxMessageLength]
	}
	if message != "" {
		face := truetype.NewFace(regular, &truetype.Options{Size: messageFontSize, DPI: 72, Hinting: font.HintingFull})
		lines := wrap(message, face, w*3/4)
		lineHeight := messageFontSize * 3 / 2
		y := h/3 - (len(lines)*lineHeight)/2
		ink := color.RGBA{40, 40, 40, 255}
		for _, line := range lines {
			drawCenteredText(img, line, w/2, y, regular, messageFontSize, ink)
			y += lineHeight
		}
	}

	if shopURL != "" {
		qrSize := min(w, h) / 4
		qr, err := qrcode.New(shopURL, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("generate QR code: %w", err)
		}
		qrImg := qr.Image(qrSize)
		b := qrImg.Bounds()
		qrX := (w - b.Dx()) / 2
		qrY := h - b.Dy() - h/8
		draw.Draw(img, image.Rect(qrX, qrY, qrX+b.Dx(), qrY+b.Dy()), qrImg, image.Point{}, draw.Over)

		muted := color.RGBA{140, 140, 140, 255}
		drawCenteredText(img, displayURL(shopURL), w/2, qrY+b.Dy()+footerFontSize*2, regular, footerFontSize, muted)
	}
	return img, nil
}

func drawText(img *image.RGBA, text string, x, y int, f *truetype.Font, size float64, c color.Color) {
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetHinting(font.HintingFull)

	_, _ = ctx.DrawString(text, freetype.Pt(x, y))
}

func drawCenteredText(img *image.RGBA, text string, centerX, y int, f *truetype.Font, size float64, c color.Color) {
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	x := centerX - measure(face, text).Round()/2
	drawText(img, text, x, y, f, size, c)
}

func measure(face font.Face, text string) fixed.Int26_6 {
	var width fixed.Int26_6
	for _, r := range text {
		if advance, ok := face.GlyphAdvance(r); ok {
			width += advance
		}
	}
	return width
}

// wrap breaks text into lines no wider than maxWidth pixels. Explicit
// newlines are kept.
func wrap(text string, face font.Face, maxWidth int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			candidate := line + " " + word
			if measure(face, candidate).Round() > maxWidth {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

func displayURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimSuffix(u, "/")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

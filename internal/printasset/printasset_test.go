package printasset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/golang/freetype/truetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/catalog"
)

func sourceImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func product(t *testing.T, id string) catalog.Product {
	t.Helper()
	p, ok := catalog.Lookup(id)
	require.True(t, ok, "missing catalog product %s", id)
	return p
}

func TestPixelSize(t *testing.T) {
	w, h := PixelSize(product(t, "poster-a3"))
	assert.Equal(t, 1753, w)
	assert.Equal(t, 2480, h)
}

func TestBuildPosterAsset_CropsToProductAspect(t *testing.T) {
	tests := []string{"poster-a3", "cushion-45", "canvas-30x40"}
	src := sourceImage(t, 400, 200)

	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			p := product(t, id)
			out, err := BuildPosterAsset(src, p)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", format)

			wantW, wantH := PixelSize(p)
			assert.Equal(t, wantW, cfg.Width)
			assert.Equal(t, wantH, cfg.Height)
		})
	}
}

func TestBuildCardPDF(t *testing.T) {
	out, err := BuildCardPDF(sourceImage(t, 300, 300), product(t, "card-a5"),
		"Happy Halloween from all of us!\nSee you soon", "https://shop.example.com/")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
	assert.Equal(t, 2, pages)
}

func TestBuild_PicksFormatByKind(t *testing.T) {
	src := sourceImage(t, 100, 100)

	_, contentType, err := Build(src, product(t, "card-a5"), Options{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)

	_, contentType, err = Build(src, product(t, "canvas-30x40"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
}

func TestBuild_RejectsBadInput(t *testing.T) {
	_, _, err := Build(nil, product(t, "poster-a3"), Options{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = Build([]byte("not an image"), product(t, "poster-a3"), Options{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = Build(sourceImage(t, 10, 10), catalog.Product{ID: "mug", Kind: "mug"}, Options{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestWrap(t *testing.T) {
	f, err := truetype.Parse(goregular.TTF)
	require.NoError(t, err)
	face := truetype.NewFace(f, &truetype.Options{Size: 20, DPI: 72})

	lines := wrap("one two three four five six seven eight nine ten", face, 120)
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, measure(face, line).Round(), 120, line)
	}

	assert.Equal(t, []string{"a", "", "b"}, wrap("a\n\nb", face, 500))
}

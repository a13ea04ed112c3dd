package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/loganlanou/aigifts/internal/apperr"

	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

const (
	DefaultModel   = "gemini-2.5-flash-image"
	defaultTimeout = 120 * time.Second
)

// contentGenerator is the slice of genai.Models the generator calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator restyles photos with the Gemini image model. Without an API key
// it paints a theme tint locally so the rest of the pipeline still runs.
type Generator struct {
	gen   contentGenerator
	model string
}

// New returns a Gemini-backed generator. baseURL overrides the API host, for
// proxies and tests; empty uses Google's.
func New(ctx context.Context, apiKey, model, baseURL string) (*Generator, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		return &Generator{model: model}, nil
	}

	timeout := defaultTimeout
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{gen: client.Models, model: model}, nil
}

func (g *Generator) Mock() bool {
	return g.gen == nil
}

// Stylize returns the source photo transformed according to prompt, as PNG.
func (g *Generator) Stylize(ctx context.Context, source []byte, mimeType, prompt string) ([]byte, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("source image is empty: %w", apperr.ErrValidation)
	}
	if g.Mock() {
		slog.Debug("image generator: no API key, painting tint")
		return Tint(source, prompt)
	}

	start := time.Now()
	data, err := g.generate(ctx, source, mimeType, prompt)
	if err != nil {
		return nil, err
	}

	out, err := toPNG(data)
	if err != nil {
		return nil, fmt.Errorf("normalize generated image: %w", err)
	}
	slog.Info("generated stylized image", "model", g.model, "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

func (g *Generator) generate(ctx context.Context, source []byte, mimeType, prompt string) ([]byte, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(source, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("gemini request failed: %w: %w", apperr.ErrUpstream, err)
	}

	var refusal []string
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
			if part.Text != "" {
				refusal = append(refusal, part.Text)
			}
		}
	}

	if len(refusal) > 0 {
		return nil, fmt.Errorf("no image in gemini response: %w: %s", apperr.ErrUpstream, truncate(strings.Join(refusal, " "), 200))
	}
	return nil, fmt.Errorf("no image in gemini response: %w", apperr.ErrUpstream)
}

func toPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("\x89PNG")) {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

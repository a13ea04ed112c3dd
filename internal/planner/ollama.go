package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "mistral:7b"

	ollamaTimeout = 120 * time.Second
)

// ollamaClient talks to a local Ollama server's chat API. It satisfies
// textGenerator so the planner runs the same conversation against it.
type ollamaClient struct {
	baseURL    string
	httpClient *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Model     string        `json:"model"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
	EvalCount int           `json:"eval_count"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllama returns a planner backed by a local Ollama model.
func NewOllama(baseURL, model string) *Planner {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Planner{
		gen: &ollamaClient{
			baseURL:    strings.TrimSuffix(baseURL, "/"),
			httpClient: &http.Client{Timeout: ollamaTimeout},
		},
		model: model,
	}
}

// Available reports whether the Ollama server is up and has the model pulled.
func (p *Planner) Available(ctx context.Context) bool {
	c, ok := p.gen.(*ollamaClient)
	if !ok {
		return p.gen != nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("ollama not available", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == p.model || strings.HasPrefix(m.Name, p.model+":") {
			return true
		}
	}

	slog.Warn("ollama available but model not found", "model", p.model, "available_models", len(tags.Models))
	return false
}

func (c *ollamaClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	req := ollamaChatRequest{Model: model, Stream: false}
	if config != nil {
		if config.SystemInstruction != nil {
			req.Messages = append(req.Messages, ollamaMessage{Role: "system", Content: partsText(config.SystemInstruction)})
		}
		if config.ResponseMIMEType == "application/json" {
			req.Format = "json"
		}
	}
	for _, content := range contents {
		role := RoleUser
		if content.Role == "model" {
			role = RoleAssistant
		}
		req.Messages = append(req.Messages, ollamaMessage{Role: role, Content: partsText(content)})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(raw))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	text := strings.TrimSpace(chat.Message.Content)
	if text == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	slog.Debug("ollama reply", "model", chat.Model, "eval_count", chat.EvalCount)
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}, nil
}

func partsText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/themes"
)

const (
	DefaultModel = "gemini-2.5-flash"

	maxMessages      = 20
	maxMessageLength = 2000
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Plan is one planner turn. Prompt is the image prompt once Ready is true.
type Plan struct {
	Reply  string `json:"reply"`
	Prompt string `json:"prompt"`
	Ready  bool   `json:"ready"`
}

type textGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Planner struct {
	gen   textGenerator
	model string
}

// New returns a Gemini-backed planner, or a scripted one when apiKey is empty.
func New(ctx context.Context, apiKey, model string) (*Planner, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, planner running in mock mode")
		return &Planner{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Planner{gen: client.Models, model: model}, nil
}

func (p *Planner) Mock() bool {
	return p.gen == nil
}

func (p *Planner) Reply(ctx context.Context, theme themes.Theme, messages []Message) (*Plan, error) {
	messages, err := normalize(messages)
	if err != nil {
		return nil, err
	}
	info := theme.Info()

	if p.gen == nil {
		return mockPlan(info, messages), nil
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction(info)}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   planSchema,
	}

	resp, err := p.gen.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("planner generate: %w: %w", apperr.ErrUpstream, err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(resp.Text()), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w: %w", apperr.ErrUpstream, err)
	}
	if plan.Ready && strings.TrimSpace(plan.Prompt) == "" {
		plan.Prompt = info.DefaultPrompt
	}

	slog.Debug("planner turn", "theme", info.ID, "messages", len(messages), "ready", plan.Ready)
	return &plan, nil
}

var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"reply":  {Type: genai.TypeString, Description: "What to say to the customer."},
		"prompt": {Type: genai.TypeString, Description: "The final image prompt, empty until ready."},
		"ready":  {Type: genai.TypeBoolean, Description: "True once the prompt is final."},
	},
	Required: []string{"reply", "prompt", "ready"},
}

func systemInstruction(info themes.Info) string {
	return info.SystemPrompt + "\n\n" +
		"Respond with JSON only: {\"reply\": string, \"prompt\": string, \"ready\": boolean}. " +
		"Keep prompt empty and ready false while you still have questions. " +
		"A good final prompt builds on this one: " + info.DefaultPrompt
}

// normalize drops empty messages, trims the history and requires the last
// message to come from the user.
func normalize(messages []Message) ([]Message, error) {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if len(content) > maxMessageLength {
			content = content[:maxMessageLength]
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: content})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one message is required: %w", apperr.ErrValidation)
	}
	if out[len(out)-1].Role != RoleUser {
		return nil, fmt.Errorf("last message must come from the user: %w", apperr.ErrValidation)
	}
	if len(out) > maxMessages {
		out = out[len(out)-maxMessages:]
	}
	return out, nil
}

// mockPlan asks one question, then settles on the theme prompt plus whatever
// the customer asked for.
func mockPlan(info themes.Info, messages []Message) *Plan {
	var userTurns []string
	for _, m := range messages {
		if m.Role == RoleUser {
			userTurns = append(userTurns, m.Content)
		}
	}

	if len(userTurns) < 2 {
		return &Plan{
			Reply: fmt.Sprintf("Love it! Anything special you want in your %s picture, like a costume, a setting or a colour scheme?", info.Name),
		}
	}

	return &Plan{
		Reply:  "Great, here is the plan. Hit generate when you are ready.",
		Prompt: info.DefaultPrompt + " Customer wishes: " + strings.Join(userTurns, "; "),
		Ready:  true,
	}
}

package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/themes"
)

type fakeGenerator struct {
	text     string
	err      error
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

func TestReply_Gemini(t *testing.T) {
	gen := &fakeGenerator{text: `{"reply":"Spooky!","prompt":"pumpkins everywhere","ready":true}`}
	p := &Planner{gen: gen, model: DefaultModel}

	plan, err := p.Reply(context.Background(), themes.Spookify, []Message{
		{Role: RoleUser, Content: "make it spooky"},
		{Role: RoleAssistant, Content: "what costume?"},
		{Role: RoleUser, Content: "vampire"},
	})
	require.NoError(t, err)
	assert.Equal(t, &Plan{Reply: "Spooky!", Prompt: "pumpkins everywhere", Ready: true}, plan)

	require.Len(t, gen.contents, 3)
	assert.Equal(t, "model", string(gen.contents[1].Role))
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.Contains(t, gen.config.SystemInstruction.Parts[0].Text, "Spookify")
}

func TestReply_ReadyWithoutPromptUsesThemeDefault(t *testing.T) {
	gen := &fakeGenerator{text: `{"reply":"ok","prompt":"","ready":true}`}
	p := &Planner{gen: gen, model: DefaultModel}

	plan, err := p.Reply(context.Background(), themes.Jollyfy, []Message{{Role: RoleUser, Content: "xmas please"}})
	require.NoError(t, err)
	assert.Equal(t, themes.Jollyfy.Info().DefaultPrompt, plan.Prompt)
}

func TestReply_UpstreamErrors(t *testing.T) {
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	p := &Planner{gen: &fakeGenerator{err: errors.New("quota exceeded")}, model: DefaultModel}
	_, err := p.Reply(ctx, themes.Gifts, msgs)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))

	p = &Planner{gen: &fakeGenerator{text: "not json"}, model: DefaultModel}
	_, err = p.Reply(ctx, themes.Gifts, msgs)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
}

func TestReply_Validation(t *testing.T) {
	p := &Planner{model: DefaultModel}
	ctx := context.Background()

	_, err := p.Reply(ctx, themes.Gifts, nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = p.Reply(ctx, themes.Gifts, []Message{{Role: RoleUser, Content: "  "}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = p.Reply(ctx, themes.Gifts, []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestReply_Mock(t *testing.T) {
	p, err := New(context.Background(), "", "")
	require.NoError(t, err)
	require.True(t, p.Mock())
	ctx := context.Background()

	first, err := p.Reply(ctx, themes.Spookify, []Message{{Role: RoleUser, Content: "my dog"}})
	require.NoError(t, err)
	assert.False(t, first.Ready)
	assert.Empty(t, first.Prompt)

	second, err := p.Reply(ctx, themes.Spookify, []Message{
		{Role: RoleUser, Content: "my dog"},
		{Role: RoleAssistant, Content: first.Reply},
		{Role: RoleUser, Content: "witch hat"},
	})
	require.NoError(t, err)
	assert.True(t, second.Ready)
	assert.True(t, strings.HasPrefix(second.Prompt, themes.Spookify.Info().DefaultPrompt))
	assert.Contains(t, second.Prompt, "witch hat")
}

func TestNormalize_TrimsHistory(t *testing.T) {
	var msgs []Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, Message{Role: RoleUser, Content: strings.Repeat("a", 3000)})
	}
	out, err := normalize(msgs)
	require.NoError(t, err)
	assert.Len(t, out, maxMessages)
	assert.Len(t, out[0].Content, maxMessageLength)
}

package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/themes"
)

func ollamaServer(t *testing.T, reply string, status int) (*httptest.Server, *ollamaChatRequest) {
	t.Helper()
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:7b"},{"name":"llama3:8b"}]}`))
		case "/api/chat":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(ollamaChatResponse{
				Model:   got.Model,
				Message: ollamaMessage{Role: RoleAssistant, Content: reply},
				Done:    true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestOllama_Reply(t *testing.T) {
	srv, got := ollamaServer(t, `{"reply":"Ho ho ho","prompt":"","ready":false}`, http.StatusOK)
	p := NewOllama(srv.URL, "")

	plan, err := p.Reply(context.Background(), themes.Jollyfy, []Message{
		{Role: RoleUser, Content: "christmas jumper for my cat"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ho ho ho", plan.Reply)
	assert.False(t, plan.Ready)

	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Jollyfy")
	assert.Equal(t, ollamaMessage{Role: RoleUser, Content: "christmas jumper for my cat"}, got.Messages[1])
}

func TestOllama_UpstreamError(t *testing.T) {
	srv, _ := ollamaServer(t, "", http.StatusInternalServerError)
	p := NewOllama(srv.URL, "")

	_, err := p.Reply(context.Background(), themes.Gifts, []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestOllama_Available(t *testing.T) {
	srv, _ := ollamaServer(t, "", http.StatusOK)

	assert.True(t, NewOllama(srv.URL, "llama3").Available(context.Background()))
	assert.False(t, NewOllama(srv.URL, "phi3").Available(context.Background()))
	assert.False(t, NewOllama("http://127.0.0.1:1", "").Available(context.Background()))
}

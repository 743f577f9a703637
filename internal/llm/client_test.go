package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govbid/internal/logger"
)

func TestNewClient_NoKey(t *testing.T) {
	assert.Nil(t, NewClient(Config{}, logger.Nop()))
	assert.Nil(t, NewClient(Config{APIKey: "  "}, logger.Nop()))
}

func TestGenerateText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"content": [{"type": "text", "text": "hello"}, {"type": "text", "text": " world"}],
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, logger.Nop())
	text, err := c.GenerateText(context.Background(), Request{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 600,
		Prompt:    "say hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, float64(600), got["max_tokens"])
	assert.Equal(t, "claude-haiku-4-5-20251001", got["model"])
}

func TestGenerateText_ErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, logger.Nop())
	_, err := c.GenerateText(context.Background(), Request{Model: "m", MaxTokens: 10, Prompt: "p"})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerateText_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, logger.Nop())
	_, err := c.GenerateText(context.Background(), Request{Model: "m", MaxTokens: 10, Prompt: "p"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

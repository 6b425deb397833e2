package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Corphon/ArtVistas/internal/llm"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := llm.GetProvider("openai", map[string]string{
		"api_key":       "sk-test",
		"base_url":      srv.URL + "/v1",
		"default_model": "gpt-4o-mini",
	})
	require.NoError(t, err)
	return p
}

func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider("openai", map[string]string{})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestCompleteText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body openaigo.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, openaigo.ChatMessageRoleUser, body.Messages[0].Role)
		assert.Equal(t, "User: tell me about the coelacanth\n\nAssistant:", body.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "A living fossil."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 4, "total_tokens": 24}
		}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "User: tell me about the coelacanth\n\nAssistant:"})
	require.NoError(t, err)

	assert.Equal(t, "A living fossil.", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 24, resp.TokensUsed)
	assert.Equal(t, "openai", resp.ProviderName)
}

func TestCompleteTextSystemPrompt(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body openaigo.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, openaigo.ChatMessageRoleSystem, body.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi", SystemPrompt: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestCompleteTextAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestCompatibleGateways(t *testing.T) {
	for _, name := range []string{"openrouter", "grok", "qwen", "glm", "githubmodels"} {
		assert.Contains(t, llm.ListProviders(), name)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body openaigo.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen2.5-max", body.Model)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	p, err := llm.GetProvider("qwen", map[string]string{"api_key": "k", "base_url": srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "qwen", p.GetName())
	assert.NotEmpty(t, p.GetSupportedModels())

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "qwen", resp.ProviderName)
}

func TestEmptyChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

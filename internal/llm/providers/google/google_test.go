package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Corphon/ArtVistas/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := llm.GetProvider("google", map[string]string{
		"api_key":  "test-key",
		"base_url": srv.URL,
	})
	require.NoError(t, err)
	return p
}

func TestInitializeRequiresKey(t *testing.T) {
	_, err := llm.GetProvider("google", map[string]string{"api_key": "  "})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestCompleteText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)
		assert.Equal(t, "User: who painted this?\n\nAssistant:", body.Contents[0].Parts[0].Text)
		assert.Nil(t, body.SystemInstruction)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Leonardo "}, {"text": "da Vinci."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4, "totalTokenCount": 16}
		}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "User: who painted this?\n\nAssistant:"})
	require.NoError(t, err)

	assert.Equal(t, "Leonardo da Vinci.", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
	assert.Equal(t, 16, resp.TokensUsed)
	assert.Equal(t, "gemini-1.5-flash", resp.ModelName)
	assert.Equal(t, "google gemini", resp.ProviderName)
}

func TestCompleteTextSystemInstructionAndModel(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-pro:generateContent", r.URL.Path)

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "be brief", body.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 128, body.GenerationConfig.MaxOutputTokens)

		_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}}]}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:       "hi",
		SystemPrompt: "be brief",
		Model:        "gemini-2.5-pro",
		MaxTokens:    128,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestCompleteTextErrors(t *testing.T) {
	t.Run("api error payload", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"code": 503, "message": "The model is overloaded."}}`))
		})

		_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "The model is overloaded.")
	})

	t.Run("no candidates", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates": []}`))
		})

		_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "late"}]}}]}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.CompleteText(ctx, llm.CompletionRequest{Prompt: "hi"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

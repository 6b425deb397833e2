package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "google", cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.GuideRequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.GuideSessionTTL)
	assert.Equal(t, 60, cfg.CameraFPS)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.HasCredential())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_BASE_URL", "https://openrouter.ai/api/v1")
	t.Setenv("GUIDE_REQUEST_TIMEOUT", "5s")
	t.Setenv("GUIDE_CONTEXT_WINDOW", "last:12")
	t.Setenv("CORS_ORIGINS", "https://artvistas.example,https://kiosk.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.GuideRequestTimeout)
	assert.True(t, cfg.HasCredential())
	assert.Equal(t, map[string]string{
		"api_key":       "sk-test",
		"default_model": "gpt-4o-mini",
		"base_url":      "https://openrouter.ai/api/v1",
	}, cfg.LLMConfig())
	assert.Equal(t, []string{"https://artvistas.example", "https://kiosk.example"}, cfg.CORSOrigins)

	window, err := cfg.ContextWindow()
	require.NoError(t, err)
	assert.Equal(t, ContextWindowSpec{Kind: "last", Limit: 12}, window)
}

func TestLoadFallsBackToGeminiKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.LLMAPIKey)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CAMERA_FPS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestContextWindow(t *testing.T) {
	tests := []struct {
		raw     string
		want    ContextWindowSpec
		wantErr bool
	}{
		{raw: "", want: ContextWindowSpec{Kind: "unbounded"}},
		{raw: "Unbounded", want: ContextWindowSpec{Kind: "unbounded"}},
		{raw: "tokens:4000", want: ContextWindowSpec{Kind: "tokens", Limit: 4000}},
		{raw: "last:0", wantErr: true},
		{raw: "summary:3", wantErr: true},
		{raw: "last", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg := &Config{GuideContextWindow: tt.raw}
			got, err := cfg.ContextWindow()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

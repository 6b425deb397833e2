// internal/llm/generator.go
package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Generator turns a Provider into the single-prompt call the guide chat needs.
type Generator struct {
	provider    Provider
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

func WithTemperature(t float32) GeneratorOption {
	return func(g *Generator) { g.temperature = t }
}

func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) { g.maxTokens = n }
}

func WithLogger(logger *zap.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator wraps provider.
func NewGenerator(provider Provider, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:    provider,
		temperature: 0.7,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// Generate sends prompt as a single user turn and returns the completion text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.provider.CompleteText(ctx, CompletionRequest{
		Prompt:      prompt,
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	g.logger.Debug("completion received",
		zap.String("provider", resp.ProviderName),
		zap.String("model", resp.ModelName),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return text, nil
}

// ProviderName reports the wrapped provider's name.
func (g *Generator) ProviderName() string {
	return g.provider.GetName()
}

// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Corphon/ArtVistas/internal/llm"
	openaigo "github.com/sashabaranov/go-openai"
)

const defaultModel = openaigo.GPT4oMini

// gateway is a chat-completions endpoint that speaks the OpenAI protocol.
type gateway struct {
	name    string
	baseURL string
	model   string
	models  []string
}

var gateways = []gateway{
	{name: "openai", model: defaultModel, models: []string{openaigo.GPT4oMini, openaigo.GPT4o}},
	{name: "openrouter", baseURL: "https://openrouter.ai/api/v1", model: "google/gemma-3-27b-it:free", models: []string{"google/gemma-3-27b-it:free", "openai/gpt-4o-mini"}},
	{name: "grok", baseURL: "https://api.x.ai/v1", model: "grok-3", models: []string{"grok-4", "grok-3", "grok-3-mini"}},
	{name: "qwen", baseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", model: "qwen2.5-max", models: []string{"qwen2.5-max", "qwen-plus", "qwen-turbo"}},
	{name: "glm", baseURL: "https://open.bigmodel.cn/api/paas/v4", model: "glm-4", models: []string{"glm-4", "glm-4-flash"}},
	{name: "githubmodels", baseURL: "https://models.inference.ai.azure.com", model: "gpt-4o-mini", models: []string{"gpt-4o-mini", "gpt-4o"}},
}

func init() {
	for _, gw := range gateways {
		gw := gw
		llm.Register(gw.name, func() llm.Provider {
			return &Provider{
				name:         gw.name,
				baseURL:      gw.baseURL,
				defaultModel: gw.model,
				models:       gw.models,
			}
		})
	}
}

// Provider speaks the OpenAI chat-completions protocol. The same client
// serves every compatible gateway; base_url overrides the gateway default.
type Provider struct {
	name         string
	baseURL      string
	client       *openaigo.Client
	defaultModel string
	models       []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return llm.ErrMissingAPIKey
	}

	clientConfig := openaigo.DefaultConfig(apiKey)
	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = baseURL
	}
	if p.baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(p.baseURL, "/")
	}
	p.client = openaigo.NewClientWithConfig(clientConfig)

	if p.defaultModel == "" {
		p.defaultModel = defaultModel
	}
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	return nil
}

func (p *Provider) GetName() string {
	return p.name
}

func (p *Provider) GetSupportedModels() []string {
	return p.models
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]openaigo.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openaigo.ChatCompletionMessage{
		Role:    openaigo.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.StopWords,
	})
	if err != nil {
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s API error (%d): %s: %w", p.name, apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices: %w", p.name, llm.ErrEmptyCompletion)
	}

	return &llm.CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		TokensUsed:   resp.Usage.TotalTokens,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		ModelName:    resp.Model,
		ProviderName: p.GetName(),
	}, nil
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Initialize(config map[string]string) error {
	return m.Called(config).Error(0)
}

func (m *mockProvider) GetName() string { return "mock" }

func (m *mockProvider) GetSupportedModels() []string { return []string{"mock-1"} }

func (m *mockProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*CompletionResponse)
	return resp, args.Error(1)
}

func TestGeneratorGenerate(t *testing.T) {
	p := &mockProvider{}
	p.On("CompleteText", mock.Anything, CompletionRequest{
		Prompt:      "User: hello\n\nAssistant:",
		Model:       "mock-1",
		Temperature: 0.2,
		MaxTokens:   256,
	}).Return(&CompletionResponse{Text: "  Welcome to the gallery.\n"}, nil).Once()

	g := NewGenerator(p, WithModel("mock-1"), WithTemperature(0.2), WithMaxTokens(256), WithLogger(nil))
	text, err := g.Generate(context.Background(), "User: hello\n\nAssistant:")

	require.NoError(t, err)
	assert.Equal(t, "Welcome to the gallery.", text)
	assert.Equal(t, "mock", g.ProviderName())
	p.AssertExpectations(t)
}

func TestGeneratorErrors(t *testing.T) {
	upstream := errors.New("connection reset")

	p := &mockProvider{}
	p.On("CompleteText", mock.Anything, mock.Anything).Return(nil, upstream).Once()
	p.On("CompleteText", mock.Anything, mock.Anything).Return(&CompletionResponse{Text: "   "}, nil).Once()

	g := NewGenerator(p)

	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, upstream)

	_, err = g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestRegistry(t *testing.T) {
	Register("Mock", func() Provider {
		p := &mockProvider{}
		p.On("Initialize", mock.Anything).Return(nil)
		return p
	})

	assert.Contains(t, ListProviders(), "mock")

	p, err := GetProvider("MOCK", map[string]string{"api_key": "k"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.GetName())

	_, err = GetProvider("nope", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

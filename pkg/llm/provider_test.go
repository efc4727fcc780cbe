package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelOllama(t *testing.T) {
	model, err := NewModel(ProviderConfig{
		Provider: ProviderOllama,
		Model:    "mistral",
		BaseURL:  "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestNewModelDefaultsToOllama(t *testing.T) {
	model, err := NewModel(ProviderConfig{Model: "mistral"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestNewModelUnknownProvider(t *testing.T) {
	_, err := NewModel(ProviderConfig{Provider: "bedrock", Model: "x"})
	assert.Error(t, err)
}

func TestCallOptions(t *testing.T) {
	opts := ProviderConfig{Temperature: 0.2, MaxTokens: 512}.CallOptions()
	assert.Len(t, opts, 2)

	opts = ProviderConfig{}.CallOptions()
	assert.Empty(t, opts)
}

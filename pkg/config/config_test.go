package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

embedding:
  model: "nomic-embed-text:latest"
  dim: 768

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_nodes"
  batch_size: 50

reader:
  input_dir: "docs"
  recursive: true
  required_exts:
    - ".pdf"
    - ".md"
  exclude_hidden: true

splitter:
  mode: "sentence"
  chunk_size: 512
  chunk_overlap: 100

scraper:
  max_depth: 5
  rate_limit: 1.5
  ignore_patterns:
    - "/test/"
  allowed_extensions:
    - ".html"
    - "/"

retrieval:
  top_k: 3
  chat_mode: "context"

ui:
  streaming: false
  theme: "dark"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 768, config.Embedding.Dim)
	assert.Equal(t, "test_nodes", config.Database.TableName)
	assert.Equal(t, 50, config.Database.BatchSize)
	assert.Equal(t, "docs", config.Reader.InputDir)
	assert.Equal(t, []string{".pdf", ".md"}, config.Reader.RequiredExts)
	assert.Equal(t, 512, config.Splitter.ChunkSize)
	assert.Equal(t, 100, config.Splitter.ChunkOverlap)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, "context", config.Retrieval.ChatMode)
	assert.False(t, config.UI.Streaming)
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("llm:\n  provider: ollama\n"), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 2000, config.LLM.MaxTokens)
	assert.Equal(t, 1024, config.Splitter.ChunkSize)
	assert.Equal(t, 200, config.Splitter.ChunkOverlap)
	assert.Equal(t, "sentence", config.Splitter.Mode)
	assert.Equal(t, 5, config.Retrieval.TopK)
	assert.Equal(t, "condense_question", config.Retrieval.ChatMode)
	assert.Equal(t, "nodes", config.Database.TableName)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	errors := config.Validate()
	assert.Empty(t, errors)
}

func TestValidateErrors(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.LLM.Provider = "anthropic"
	config.LLM.MaxTokens = 0
	config.Splitter.ChunkOverlap = config.Splitter.ChunkSize
	config.Retrieval.TopK = 0

	errors := config.Validate()
	require.NotEmpty(t, errors)

	fields := make(map[string]bool)
	for _, e := range errors {
		fields[e.Field] = true
		assert.NotEmpty(t, e.Error())
	}
	assert.True(t, fields["llm.provider"])
	assert.True(t, fields["llm.max_tokens"])
	assert.True(t, fields["splitter.chunk_overlap"])
	assert.True(t, fields["retrieval.top_k"])
}

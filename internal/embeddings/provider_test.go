package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "word2vec"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewOpenAIProviderValidation(t *testing.T) {
	_, err := NewOpenAIProvider(Config{Model: "nomic-embed-text"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewOpenAIProvider(Config{BaseURL: "http://localhost:11434/v1"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewOpenAIProvider(t *testing.T) {
	p, err := NewOpenAIProvider(Config{
		BaseURL: "http://localhost:11434/v1",
		Model:   "nomic-embed-text",
	})
	require.NoError(t, err)
	assert.Equal(t, 768, p.Dimension())
	assert.NoError(t, p.Close())
}

func TestDetectDimensionFromModel(t *testing.T) {
	tests := []struct {
		model string
		dim   int
	}{
		{"nomic-embed-text", 768},
		{"text-embedding-3-small", 1536},
		{"BAAI/bge-small-en-v1.5", 384},
		{"some-large-model", 1024},
		{"some-base-model", 768},
		{"totally-unknown", 384},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.dim, detectDimensionFromModel(tt.model), tt.model)
	}
}

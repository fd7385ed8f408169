package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("embeddings: empty input")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid config")

	// ErrEmbeddingFailed indicates the backend failed to produce vectors.
	ErrEmbeddingFailed = errors.New("embeddings: embedding failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is "openai" (any openai-compatible endpoint) or "fastembed".
	Provider string

	// BaseURL is the openai-compatible endpoint URL.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey authenticates against hosted endpoints. Optional for local
	// TEI/Ollama.
	APIKey string

	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if the model is unknown.
func detectDimensionFromModel(model string) int {
	known := map[string]int{
		"nomic-embed-text":        768,
		"text-embedding-3-small":  1536,
		"text-embedding-3-large":  3072,
		"BAAI/bge-small-en-v1.5":  384,
		"BAAI/bge-base-en-v1.5":   768,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
	}
	if dim, ok := known[model]; ok {
		return dim
	}
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "small"), strings.Contains(model, "mini"):
		return 384
	default:
		return 384
	}
}

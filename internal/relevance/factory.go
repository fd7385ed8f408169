package relevance

import (
	"fmt"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/embeddings"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// NewIndex creates the configured SimilarityIndex backend.
//
// "chromem" (default) is the embedded store persisted under indexDir;
// "qdrant" talks to a remote instance for daemon deployments.
func NewIndex(cfg config.RelevanceConfig, indexDir string, logger *logging.Logger) (SimilarityIndex, error) {
	provider, err := embeddings.NewProvider(embeddings.Config{
		Provider: cfg.Embeddings.Provider,
		BaseURL:  cfg.Embeddings.BaseURL,
		Model:    cfg.Embeddings.Model,
		APIKey:   cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	switch cfg.VectorBackend {
	case "chromem", "":
		return NewChromemIndex(indexDir, provider, logger)
	case "qdrant":
		return NewQdrantIndex(QdrantIndexConfig{
			Host: cfg.QdrantHost,
			Port: cfg.QdrantPort,
		}, provider, logger)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// Config is the root configuration for remedyd.
type Config struct {
	// StateDir is where durable state (ticket records, vector index)
	// lives. Default: ~/.config/remedyd
	StateDir string `koanf:"state_dir"`

	// RepoRoot is the default repository root for relevance resolution
	// and patch application. Default: current working directory.
	RepoRoot string `koanf:"repo_root"`

	Server    ServerConfig    `koanf:"server"`
	Logging   logging.Config  `koanf:"logging"`
	Relevance RelevanceConfig `koanf:"relevance"`
	Rewriter  RewriterConfig  `koanf:"rewriter"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// RelevanceConfig configures the file relevance resolver.
type RelevanceConfig struct {
	// VectorBackend selects the semantic index backend: "chromem"
	// (embedded, default) or "qdrant" (remote).
	VectorBackend string `koanf:"vector_backend"`

	// QdrantHost and QdrantPort locate the remote qdrant instance.
	QdrantHost string `koanf:"qdrant_host"`
	QdrantPort int    `koanf:"qdrant_port"`

	// Embeddings configures the embedding provider used by the
	// semantic strategy.
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
}

// EmbeddingsConfig configures embedding generation.
type EmbeddingsConfig struct {
	// Provider is "openai" (any openai-compatible endpoint, including
	// TEI and Ollama) or "fastembed" (local ONNX, requires CGO).
	Provider string `koanf:"provider"`

	// BaseURL is the openai-compatible endpoint URL.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// APIKey authenticates against hosted endpoints. Optional for
	// local TEI/Ollama.
	APIKey Secret `koanf:"api_key"`
}

// RewriterConfig configures the external code-rewriting collaborator.
type RewriterConfig struct {
	// BaseURL is the openai-compatible chat endpoint (Ollama by default).
	BaseURL string `koanf:"base_url"`

	// Model is the chat model used for rewriting.
	Model string `koanf:"model"`

	// APIKey authenticates against hosted endpoints.
	APIKey Secret `koanf:"api_key"`

	// ScrubSecrets redacts detected credentials from content before it
	// leaves the process. Default: true.
	ScrubSecrets bool `koanf:"scrub_secrets"`
}

// NewDefaultConfig returns configuration defaults.
func NewDefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		StateDir: filepath.Join(home, ".config", "remedyd"),
		RepoRoot: cwd,
		Server: ServerConfig{
			Host: "localhost",
			Port: 8790,
		},
		Logging: *logging.NewDefaultConfig(),
		Relevance: RelevanceConfig{
			VectorBackend: "chromem",
			QdrantHost:    "localhost",
			QdrantPort:    6334,
			Embeddings: EmbeddingsConfig{
				Provider: "openai",
				BaseURL:  "http://localhost:11434/v1",
				Model:    "nomic-embed-text",
			},
		},
		Rewriter: RewriterConfig{
			BaseURL:      "http://localhost:11434/v1",
			Model:        "qwen2.5-coder",
			ScrubSecrets: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in (0, 65535], got %d", c.Server.Port)
	}
	switch c.Relevance.VectorBackend {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vector_backend must be 'chromem' or 'qdrant', got %q", c.Relevance.VectorBackend)
	}
	switch c.Relevance.Embeddings.Provider {
	case "openai", "fastembed":
	default:
		return fmt.Errorf("embeddings provider must be 'openai' or 'fastembed', got %q", c.Relevance.Embeddings.Provider)
	}
	if c.Logging.Format == "" {
		c.Logging = *logging.NewDefaultConfig()
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// TicketDir returns the directory holding persisted ticket records.
func (c *Config) TicketDir() string {
	return filepath.Join(c.StateDir, "tickets")
}

// IndexDir returns the directory holding the embedded vector index.
func (c *Config) IndexDir() string {
	return filepath.Join(c.StateDir, "index")
}

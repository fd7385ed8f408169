package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "chromem", cfg.Relevance.VectorBackend)
	assert.Equal(t, 8790, cfg.Server.Port)
	assert.Contains(t, cfg.TicketDir(), "tickets")
	assert.Contains(t, cfg.IndexDir(), "index")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty state dir", func(c *Config) { c.StateDir = "" }, "state_dir"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"bad backend", func(c *Config) { c.Relevance.VectorBackend = "faiss" }, "vector_backend"},
		{"bad embeddings provider", func(c *Config) { c.Relevance.Embeddings.Provider = "word2vec" }, "embeddings provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
state_dir: /tmp/remedyd-test
server:
  port: 9999
relevance:
  vector_backend: qdrant
  qdrant_host: qdrant.internal
rewriter:
  model: llama3
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/remedyd-test", cfg.StateDir)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "qdrant", cfg.Relevance.VectorBackend)
	assert.Equal(t, "qdrant.internal", cfg.Relevance.QdrantHost)
	assert.Equal(t, "llama3", cfg.Rewriter.Model)
	// Untouched fields keep defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9999\n"), 0600))

	t.Setenv("REMEDYD_SERVER_PORT", "7777")
	t.Setenv("REMEDYD_REWRITER_BASE_URL", "http://ollama:11434/v1")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "http://ollama:11434/v1", cfg.Rewriter.BaseURL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "chromem", cfg.Relevance.VectorBackend)
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"REMEDYD_STATE_DIR", "state_dir"},
		{"REMEDYD_REPO_ROOT", "repo_root"},
		{"REMEDYD_SERVER_PORT", "server.port"},
		{"REMEDYD_REWRITER_BASE_URL", "rewriter.base_url"},
		{"REMEDYD_RELEVANCE_VECTOR_BACKEND", "relevance.vector_backend"},
		{"REMEDYD_RELEVANCE_EMBEDDINGS_API_KEY", "relevance.embeddings.api_key"},
		{"REMEDYD_LOGGING_FORMAT", "logging.format"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, transformEnvKey(tt.in), tt.in)
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")

	assert.Equal(t, "", Secret("").String())
}

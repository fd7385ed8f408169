package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces remedyd environment variables.
	envPrefix = "REMEDYD_"
)

// Load loads configuration from the YAML file at configPath, then
// overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REMEDYD_SERVER_PORT, REMEDYD_REWRITER_MODEL, ...)
//  2. YAML config file (~/.config/remedyd/config.yaml by default)
//  3. Hardcoded defaults
//
// Environment variables use underscore separators mapped onto the YAML
// structure after the prefix:
//
//	REMEDYD_SERVER_PORT           -> server.port
//	REMEDYD_STATE_DIR             -> state_dir
//	REMEDYD_REWRITER_BASE_URL     -> rewriter.base_url
//	REMEDYD_LOGGING_FORMAT        -> logging.format
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "remedyd", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate via the descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// compoundFields are config keys whose names themselves contain
// underscores, so the env transformer must not split them.
var compoundFields = []string{
	"state_dir",
	"repo_root",
	"vector_backend",
	"qdrant_host",
	"qdrant_port",
	"base_url",
	"api_key",
	"scrub_secrets",
}

// transformEnvKey maps REMEDYD_SECTION_FIELD to section.field, keeping
// compound field names intact.
func transformEnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))

	for _, compound := range compoundFields {
		if s == compound {
			return s
		}
		suffix := "_" + compound
		if strings.HasSuffix(s, suffix) {
			head := strings.TrimSuffix(s, suffix)
			return strings.ReplaceAll(head, "_", ".") + "." + compound
		}
	}

	return strings.ReplaceAll(s, "_", ".")
}

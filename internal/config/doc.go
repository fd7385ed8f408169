// Package config provides configuration loading for remedyd.
//
// Configuration is read from a YAML file (koanf) and overridden by
// REMEDYD_-prefixed environment variables. Defaults are production-ready
// for a local Ollama-backed deployment.
package config

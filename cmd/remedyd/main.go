// Package main implements the remedyd CLI: the remediation daemon plus
// manual operations against the local ticket store.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var (
	// cfgFile is an optional explicit config file path
	cfgFile string
	// outputJSONFlag switches human-readable output to JSON
	outputJSONFlag bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remedyd",
	Short: "Remediation daemon for static-analysis findings",
	Long: `remedyd turns static-analysis findings into remediation tickets,
localizes them to files, obtains fixes from a code-rewriting model, and
applies the resulting patches as git commits.

Run 'remedyd serve' to start the HTTP daemon, or use the subcommands for
manual operations against the local state directory.`,
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/remedyd/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSONFlag, "json", false, "Output results as JSON")
}

// loadConfig loads configuration and constructs the logger used by all
// subcommands.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

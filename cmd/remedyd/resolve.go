package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/relevance"
)

var (
	// resolve command flags
	resolveSeverity    string
	resolveDescription string
	resolveRepo        string
	resolveNoIndex     bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveSeverity, "severity", "low", "Issue severity (high, medium, low, or raw analyzer text)")
	resolveCmd.Flags().StringVar(&resolveDescription, "description", "", "Issue description (improves resolution quality)")
	resolveCmd.Flags().StringVar(&resolveRepo, "repo", "", "Repository root (defaults to configured repo_root)")
	resolveCmd.Flags().BoolVar(&resolveNoIndex, "no-index", false, "Skip the semantic index, use heuristics only")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <issue-title>",
	Short: "Resolve an issue to candidate files",
	Long: `Resolve an issue title to ranked candidate files in the repository.

Runs the same strategy cascade the daemon uses during intake: entity
extraction, categorical heuristics, semantic similarity, text match.

Examples:
  # Resolve against the configured repository
  remedyd resolve "Unused variable 'tmp' in parser"

  # Resolve with a description and explicit repository
  remedyd resolve "SQL injection in login handler" \
    --severity high \
    --description "User input concatenated into query" \
    --repo /src/app

  # Heuristics only, no embedding endpoint needed
  remedyd resolve "Broken test for auth middleware" --no-index`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	root := resolveRepo
	if root == "" {
		root = cfg.RepoRoot
	}

	var index relevance.SimilarityIndex
	if !resolveNoIndex {
		index, err = relevance.NewIndex(cfg.Relevance, cfg.IndexDir(), logger)
		if err != nil {
			logger.Warn(context.Background(), "semantic index unavailable, using heuristics only", zap.Error(err))
			index = nil
		}
	}
	if index != nil {
		defer index.Close()
	}

	resolver := relevance.NewResolver(index, logger)
	iss := &issue.Issue{
		Title:       args[0],
		Description: resolveDescription,
		Severity:    issue.NormalizeSeverity(resolveSeverity),
	}

	paths := resolver.Resolve(context.Background(), iss, root)

	if outputJSONFlag {
		return outputJSON(map[string]interface{}{"files": paths})
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/gitops"
	remedyhttp "github.com/fyrsmithlabs/remedyd/internal/http"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/relevance"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the remedyd HTTP daemon",
	Long: `Start the remedyd HTTP daemon.

The daemon exposes issue intake, ticket management, and patch apply
endpoints. Configuration is loaded from the config file and REMEDYD_*
environment variables.

Examples:
  # Start with defaults (localhost:8790)
  remedyd serve

  # Configure via environment
  REMEDYD_SERVER_PORT=9000 REMEDYD_REPO_ROOT=/src/app remedyd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting remedyd",
		zap.String("version", version),
		zap.String("state_dir", cfg.StateDir),
		zap.String("repo_root", cfg.RepoRoot),
		zap.Int("port", cfg.Server.Port),
	)

	server, cleanup, err := initServer(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}

// initServer wires the full service graph behind the HTTP server.
func initServer(cfg *config.Config, logger *logging.Logger) (*remedyhttp.Server, func(), error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// The semantic strategy is optional: without an index the resolver
	// cascade still serves entity, category, and text-match results.
	index, err := relevance.NewIndex(cfg.Relevance, cfg.IndexDir(), logger)
	if err != nil {
		logger.Warn(context.Background(), "semantic index unavailable, continuing without it", zap.Error(err))
		index = nil
	}
	resolver := relevance.NewResolver(index, logger)

	git, err := gitops.NewService(&gitops.Config{RepoRoot: cfg.RepoRoot}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gitops service: %w", err)
	}

	store, err := ticket.NewStore(cfg.TicketDir())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ticket store: %w", err)
	}

	tickets, err := ticket.NewService(&ticket.Config{RepoRoot: cfg.RepoRoot}, store, resolver, git, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ticket service: %w", err)
	}

	server, err := remedyhttp.NewServer(tickets, git, logger, &remedyhttp.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		RepoRoot: cfg.RepoRoot,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http server: %w", err)
	}

	cleanup := func() {
		if index != nil {
			_ = index.Close()
		}
	}
	return server, cleanup, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/gitops"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/patch"
	"github.com/fyrsmithlabs/remedyd/internal/rewriter"
	"github.com/fyrsmithlabs/remedyd/internal/secrets"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

var (
	// apply command flags
	applyWorkdir string
	applySkipFix bool
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyWorkdir, "workdir", "", "Working tree to apply into (defaults to configured repo_root)")
	applyCmd.Flags().BoolVar(&applySkipFix, "skip-fix", false, "Apply an existing modification without invoking the rewriter")
}

var applyCmd = &cobra.Command{
	Use:   "apply <ticket-id>",
	Short: "Fix a ticket and commit the patch",
	Long: `Fix a ticket and commit the resulting patch.

For a pending ticket this runs the full pipeline: the affected file is
sent to the code-rewriting model, the ticket records the modification,
and the generated patch is applied and committed on a clean tree. For a
ticket that already carries a modification the rewrite step is skipped.

Examples:
  # Fix and commit
  remedyd apply tkt-1a2b3c4d

  # Apply into a different working tree
  remedyd apply tkt-1a2b3c4d --workdir /src/app

  # Commit a modification attached earlier, no model call
  remedyd apply tkt-1a2b3c4d --skip-fix`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	id := args[0]

	workdir := applyWorkdir
	if workdir == "" {
		workdir = cfg.RepoRoot
	}

	tickets, err := initTicketService(cfg, logger)
	if err != nil {
		return err
	}

	tk, err := tickets.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get ticket: %w", err)
	}

	if tk.Status == ticket.StatusPending && !applySkipFix {
		if err := runFix(ctx, cfg, logger, tickets, tk, workdir); err != nil {
			return err
		}
		tk, err = tickets.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to reload ticket: %w", err)
		}
	}
	if tk.Status != ticket.StatusModified {
		return fmt.Errorf("ticket %s is %s, nothing to apply", tk.ID, tk.Status)
	}

	git, err := gitops.NewService(&gitops.Config{RepoRoot: cfg.RepoRoot}, logger)
	if err != nil {
		return fmt.Errorf("failed to create gitops service: %w", err)
	}

	result, err := git.ApplyFix(ctx, tk, &gitops.ApplyOptions{WorkingDir: workdir})
	if err != nil {
		return fmt.Errorf("failed to apply fix: %w", err)
	}

	if _, err := tickets.Complete(ctx, id, result.CommitID, result.CommitMessage); err != nil {
		return fmt.Errorf("fix committed as %s but ticket update failed: %w", result.CommitID, err)
	}

	if outputJSONFlag {
		return outputJSON(result)
	}
	fmt.Printf("Applied %s\n", tk.ID)
	fmt.Printf("Commit:  %s\n", result.CommitID)
	fmt.Printf("Message: %s\n", result.CommitMessage)
	if result.BranchName != "" {
		fmt.Printf("Branch:  %s\n", result.BranchName)
	}
	return nil
}

// runFix sends the ticket's file through the rewriter and attaches the
// resulting modification.
func runFix(ctx context.Context, cfg *config.Config, logger *logging.Logger, tickets ticket.Service, tk *ticket.Ticket, workdir string) error {
	var scrubber secrets.Scrubber
	if cfg.Rewriter.ScrubSecrets {
		var err error
		scrubber, err = secrets.New(nil)
		if err != nil {
			return fmt.Errorf("failed to create secret scrubber: %w", err)
		}
	}

	rw, err := rewriter.NewService(&rewriter.Config{
		BaseURL: cfg.Rewriter.BaseURL,
		Model:   cfg.Rewriter.Model,
		APIKey:  cfg.Rewriter.APIKey.Value(),
	}, scrubber, logger)
	if err != nil {
		return fmt.Errorf("failed to create rewriter: %w", err)
	}

	executor, err := patch.NewExecutor(tickets, rw, logger)
	if err != nil {
		return fmt.Errorf("failed to create patch executor: %w", err)
	}

	plan := patch.NewPlan(&tk.Issue, []string{tk.FilePath})
	result, err := executor.ExecutePlan(ctx, plan, tk.ID, workdir)
	if err != nil {
		return fmt.Errorf("failed to execute modification plan: %w", err)
	}
	if !result.AppliedSuccessfully {
		for _, fr := range result.Results {
			if fr.Error != "" {
				return fmt.Errorf("rewrite failed for %s: %s", fr.File, fr.Error)
			}
		}
		return fmt.Errorf("rewrite produced no changes for %s", tk.FilePath)
	}
	return nil
}

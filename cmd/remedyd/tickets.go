package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

func init() {
	rootCmd.AddCommand(ticketsCmd)
	ticketsCmd.AddCommand(ticketsListCmd)
	ticketsCmd.AddCommand(ticketsShowCmd)
	ticketsCmd.AddCommand(ticketsRejectCmd)
	ticketsCmd.AddCommand(ticketsClearCmd)
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Manage remediation tickets",
	Long: `Manage remediation tickets in the local state directory.

Examples:
  # List all tickets
  remedyd tickets list

  # Show one ticket
  remedyd tickets show tkt-1a2b3c4d

  # Reject a ticket
  remedyd tickets reject tkt-1a2b3c4d

  # Remove all tickets
  remedyd tickets clear`,
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets",
	RunE:  runTicketsList,
}

var ticketsShowCmd = &cobra.Command{
	Use:   "show <ticket-id>",
	Short: "Show a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsShow,
}

var ticketsRejectCmd = &cobra.Command{
	Use:   "reject <ticket-id>",
	Short: "Reject a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsReject,
}

var ticketsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all tickets",
	RunE:  runTicketsClear,
}

// initTicketService builds a ticket service over the local store, without
// resolver or branch side effects.
func initTicketService(cfg *config.Config, logger *logging.Logger) (ticket.Service, error) {
	store, err := ticket.NewStore(cfg.TicketDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket store: %w", err)
	}
	return ticket.NewService(&ticket.Config{RepoRoot: cfg.RepoRoot}, store, nil, nil, logger)
}

func runTicketsList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := initTicketService(cfg, logger)
	if err != nil {
		return err
	}

	tickets, err := svc.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list tickets: %w", err)
	}

	if outputJSONFlag {
		return outputJSON(tickets)
	}

	if len(tickets) == 0 {
		fmt.Println("No tickets found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSEVERITY\tFILE\tTITLE")
	for _, tk := range tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			tk.ID,
			tk.Status,
			tk.Issue.Severity,
			truncate(tk.FilePath, 40),
			truncate(tk.Issue.Title, 50),
		)
	}
	return w.Flush()
}

func runTicketsShow(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := initTicketService(cfg, logger)
	if err != nil {
		return err
	}

	tk, err := svc.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get ticket: %w", err)
	}

	if outputJSONFlag {
		return outputJSON(tk)
	}

	fmt.Printf("ID:       %s\n", tk.ID)
	fmt.Printf("Status:   %s\n", tk.Status)
	fmt.Printf("Severity: %s\n", tk.Issue.Severity)
	fmt.Printf("File:     %s\n", tk.FilePath)
	fmt.Printf("Title:    %s\n", tk.Issue.Title)
	fmt.Printf("Created:  %s\n", tk.CreatedAt.Format("2006-01-02 15:04:05"))
	if tk.Issue.Description != "" {
		fmt.Printf("Description: %s\n", tk.Issue.Description)
	}
	if tk.GitBranch != "" {
		fmt.Printf("Branch:   %s\n", tk.GitBranch)
	}
	if tk.CommitID != "" {
		fmt.Printf("Commit:   %s\n", tk.CommitID)
	}
	if tk.LastError != "" {
		fmt.Printf("Last error: %s\n", tk.LastError)
	}
	return nil
}

func runTicketsReject(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := initTicketService(cfg, logger)
	if err != nil {
		return err
	}

	tk, err := svc.Reject(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to reject ticket: %w", err)
	}

	if outputJSONFlag {
		return outputJSON(tk)
	}
	fmt.Printf("Ticket %s rejected\n", tk.ID)
	return nil
}

func runTicketsClear(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := initTicketService(cfg, logger)
	if err != nil {
		return err
	}

	if err := svc.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear tickets: %w", err)
	}
	fmt.Println("All tickets cleared")
	return nil
}

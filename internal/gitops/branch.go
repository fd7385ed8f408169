package gitops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

// maxBranchNameLength bounds the derived branch name so it stays
// filesystem-safe on every platform.
const maxBranchNameLength = 60

// CreateFeatureBranch creates the ticket's isolation branch at HEAD and
// checks it out. An existing branch of the same name is reused.
func (s *service) CreateFeatureBranch(ctx context.Context, t *ticket.Ticket, workingDir string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "gitops.create_branch")
	defer span.End()

	if t == nil {
		return "", errors.New("ticket is required")
	}

	name := BranchName(t.ID, t.Issue.Title)
	span.SetAttributes(
		attribute.String("ticket_id", t.ID),
		attribute.String("branch", name),
	)

	lock := s.lockFor(workingDir)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return "", fmt.Errorf("opening repository %s: %w", workingDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	refName := plumbing.NewBranchReferenceName(name)
	_, err = repo.Reference(refName, true)
	reused := err == nil

	if reused {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
			return "", fmt.Errorf("checking out existing branch %s: %w", name, err)
		}
	} else {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: refName, Create: true}); err != nil {
			return "", fmt.Errorf("creating branch %s: %w", name, err)
		}
	}

	if s.branchCounter != nil {
		s.branchCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("reused", reused)))
	}
	s.logger.Info(ctx, "isolation branch ready",
		zap.String("ticket_id", t.ID),
		zap.String("branch", name),
		zap.Bool("reused", reused),
	)

	return name, nil
}

// BranchName derives the deterministic isolation branch name
// fix/<ticket-id>-<title-slug>.
func BranchName(ticketID, title string) string {
	name := "fix/" + slugify(ticketID+" "+title)
	if len(name) > maxBranchNameLength {
		name = strings.TrimRight(name[:maxBranchNameLength], "-")
	}
	return name
}

// slugify lower-cases the input and collapses every non-alphanumeric run
// into a single hyphen.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

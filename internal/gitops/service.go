package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/patch"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/gitops"

// Service provides version-control operations for tickets.
type Service interface {
	// HasUncommittedChanges reports whether the working tree is dirty.
	// Any staged, modified, deleted, or untracked entry counts.
	HasUncommittedChanges(ctx context.Context, workingDir string) (bool, error)

	// ApplyFix applies the ticket's patch on a clean tree, stages, and
	// commits. A dirty tree fails with ErrUncommittedChanges and leaves
	// no partial state.
	ApplyFix(ctx context.Context, t *ticket.Ticket, opts *ApplyOptions) (*ApplyResult, error)

	// CreateFeatureBranch creates (or reuses) the ticket's isolation
	// branch and checks it out.
	CreateFeatureBranch(ctx context.Context, t *ticket.Ticket, workingDir string) (string, error)
}

// Config configures the gitops service.
type Config struct {
	// RepoRoot is the default working tree.
	RepoRoot string

	// AuthorName and AuthorEmail sign the commits.
	AuthorName  string
	AuthorEmail string
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *Config {
	return &Config{
		AuthorName:  "remedyd",
		AuthorEmail: "remedyd@localhost",
	}
}

// service implements the Service interface.
type service struct {
	config *Config
	logger *logging.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	applyCounter  metric.Int64Counter
	branchCounter metric.Int64Counter

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a gitops service.
func NewService(cfg *Config, logger *logging.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "remedyd"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "remedyd@localhost"
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		config: cfg,
		logger: logger.Named("gitops"),
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
		locks:  make(map[string]*sync.Mutex),
	}

	s.initMetrics()

	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.applyCounter, err = s.meter.Int64Counter(
		"remedyd.gitops.applies_total",
		metric.WithDescription("Total fix applications, labeled by outcome"),
		metric.WithUnit("{apply}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create apply counter", zap.Error(err))
	}

	s.branchCounter, err = s.meter.Int64Counter(
		"remedyd.gitops.branches_total",
		metric.WithDescription("Total isolation branches created or reused"),
		metric.WithUnit("{branch}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create branch counter", zap.Error(err))
	}
}

// lockFor returns the per-working-directory apply lock.
func (s *service) lockFor(workingDir string) *sync.Mutex {
	key := filepath.Clean(workingDir)
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// HasUncommittedChanges reports whether the working tree is dirty.
func (s *service) HasUncommittedChanges(ctx context.Context, workingDir string) (bool, error) {
	_, span := s.tracer.Start(ctx, "gitops.status")
	defer span.End()

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return false, fmt.Errorf("opening repository %s: %w", workingDir, err)
	}
	return hasUncommittedChanges(repo)
}

func hasUncommittedChanges(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// ApplyFix applies the ticket's patch on a clean tree and commits.
func (s *service) ApplyFix(ctx context.Context, t *ticket.Ticket, opts *ApplyOptions) (*ApplyResult, error) {
	ctx, span := s.tracer.Start(ctx, "gitops.apply_fix")
	defer span.End()

	if t == nil {
		return nil, errors.New("ticket is required")
	}
	if opts == nil {
		opts = &ApplyOptions{}
	}
	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = s.config.RepoRoot
	}
	if workingDir == "" {
		return nil, errors.New("working directory is required")
	}

	span.SetAttributes(
		attribute.String("ticket_id", t.ID),
		attribute.String("file_path", t.FilePath),
	)

	if t.ModifiedCode == "" {
		return nil, fmt.Errorf("ticket %s has no modification attached", t.ID)
	}

	lock := s.lockFor(workingDir)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", workingDir, err)
	}

	dirty, err := hasUncommittedChanges(repo)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dirty {
		s.recordApply(ctx, "conflict")
		return nil, fmt.Errorf("%w: %s", ErrUncommittedChanges, workingDir)
	}

	abs := filepath.Join(workingDir, filepath.FromSlash(t.FilePath))
	current, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.FilePath, err)
	}

	base := t.OriginalCode
	if base == "" {
		base = string(current)
	}
	patchText, err := patch.Generate(abs, base, t.ModifiedCode, workingDir)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generating patch for %s: %w", t.FilePath, err)
	}

	updated, err := patch.Apply(string(current), patchText)
	if err != nil {
		span.RecordError(err)
		s.recordApply(ctx, "error")
		return nil, fmt.Errorf("applying patch to %s: %w", t.FilePath, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(abs, []byte(updated), mode); err != nil {
		return nil, fmt.Errorf("writing %s: %w", t.FilePath, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	if _, err := wt.Add(filepath.ToSlash(t.FilePath)); err != nil {
		return nil, fmt.Errorf("staging %s: %w", t.FilePath, err)
	}

	message := opts.CommitMessage
	if message == "" {
		message = commitMessage(t)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.config.AuthorName,
			Email: s.config.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		span.RecordError(err)
		s.recordApply(ctx, "error")
		return nil, fmt.Errorf("committing: %w", err)
	}

	branch := ""
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	s.recordApply(ctx, "success")
	s.logger.Info(ctx, "applied fix",
		zap.String("ticket_id", t.ID),
		zap.String("commit_id", hash.String()),
		zap.String("branch", branch),
	)

	span.SetAttributes(attribute.String("commit_id", hash.String()))
	return &ApplyResult{
		CommitID:      hash.String(),
		CommitMessage: message,
		BranchName:    branch,
	}, nil
}

func (s *service) recordApply(ctx context.Context, outcome string) {
	if s.applyCounter != nil {
		s.applyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// commitMessage derives the commit message from the issue title.
func commitMessage(t *ticket.Ticket) string {
	title := t.Issue.Title
	if title == "" {
		title = t.FilePath
	}
	return fmt.Sprintf("fix: %s (%s)", title, t.ID)
}

package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/ticket"

// Service provides ticket lifecycle operations.
type Service interface {
	// CreateFromIssue creates a pending ticket for one file of an issue.
	// When filePath is empty or "unknown" and basePath is set, the
	// resolver populates it. Creation never fails for resolution or
	// branch-creation reasons.
	CreateFromIssue(ctx context.Context, iss *issue.Issue, filePath, basePath string) (*Ticket, error)

	// Get retrieves a ticket by ID.
	Get(ctx context.Context, id string) (*Ticket, error)

	// List retrieves all tickets.
	List(ctx context.Context) ([]*Ticket, error)

	// UpdateWithModification attaches a rewrite outcome. A successful
	// modification advances the ticket to modified; a failed one leaves
	// the status unchanged and records the error.
	UpdateWithModification(ctx context.Context, id string, mod *Modification) (*Ticket, error)

	// Complete stamps commit metadata. Legal only from modified.
	Complete(ctx context.Context, id, commitID, commitMessage string) (*Ticket, error)

	// Reject marks the ticket rejected. Legal from pending or modified.
	Reject(ctx context.Context, id string) (*Ticket, error)

	// Clear removes all tickets.
	Clear(ctx context.Context) error
}

// Config configures the ticket service.
type Config struct {
	// RepoRoot is the default working tree for resolution and
	// isolation branches when the caller supplies no base path.
	RepoRoot string
}

// service implements the Service interface.
type service struct {
	config   *Config
	store    *Store
	resolver Resolver
	branches BranchCreator
	logger   *logging.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	createCounter   metric.Int64Counter
	completeCounter metric.Int64Counter
	rejectCounter   metric.Int64Counter
}

// NewService creates a ticket service. resolver and branches are
// optional; without them the corresponding creation side effects are
// skipped.
func NewService(cfg *Config, store *Store, resolver Resolver, branches BranchCreator, logger *logging.Logger) (Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if store == nil {
		return nil, errors.New("ticket store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &service{
		config:   cfg,
		store:    store,
		resolver: resolver,
		branches: branches,
		logger:   logger.Named("ticket"),
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.createCounter, err = s.meter.Int64Counter(
		"remedyd.ticket.created_total",
		metric.WithDescription("Total number of tickets created"),
		metric.WithUnit("{ticket}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create ticket counter", zap.Error(err))
	}

	s.completeCounter, err = s.meter.Int64Counter(
		"remedyd.ticket.completed_total",
		metric.WithDescription("Total number of tickets completed"),
		metric.WithUnit("{ticket}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create complete counter", zap.Error(err))
	}

	s.rejectCounter, err = s.meter.Int64Counter(
		"remedyd.ticket.rejected_total",
		metric.WithDescription("Total number of tickets rejected"),
		metric.WithUnit("{ticket}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create reject counter", zap.Error(err))
	}
}

// newTicketID returns a "tkt-" prefixed short unique identifier.
func newTicketID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "tkt-" + raw[:8]
}

// CreateFromIssue creates a pending ticket for one file of an issue.
func (s *service) CreateFromIssue(ctx context.Context, iss *issue.Issue, filePath, basePath string) (*Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.create")
	defer span.End()

	if iss == nil {
		return nil, issue.ErrMissingIssue
	}
	if basePath == "" {
		basePath = s.config.RepoRoot
	}

	span.SetAttributes(
		attribute.String("issue.title", iss.Title),
		attribute.String("issue.severity", string(iss.Severity)),
	)

	if (filePath == "" || filePath == issue.UnknownFile) && basePath != "" && s.resolver != nil {
		if paths := s.resolver.Resolve(ctx, iss, basePath); len(paths) > 0 {
			filePath = paths[0]
		}
	}
	if filePath == "" {
		filePath = issue.UnknownFile
	}

	now := time.Now().UTC()
	t := &Ticket{
		ID:        newTicketID(),
		Issue:     *iss,
		FilePath:  filePath,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Save(t); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persisting ticket: %w", err)
	}

	// High-severity issues get an isolation branch, only once the record
	// exists. Failure is logged and the ticket stays valid without one.
	if iss.Severity == issue.SeverityHigh && basePath != "" && s.branches != nil {
		branch, err := s.branches.CreateFeatureBranch(ctx, t, basePath)
		if err != nil {
			s.logger.Warn(ctx, "isolation branch creation failed",
				zap.String("ticket_id", t.ID),
				zap.Error(err),
			)
		} else {
			t.GitBranch = branch
			if _, err := s.store.Update(t.ID, func(rec *Ticket) error {
				rec.GitBranch = branch
				return nil
			}); err != nil {
				s.logger.Warn(ctx, "failed to record isolation branch",
					zap.String("ticket_id", t.ID),
					zap.Error(err),
				)
			}
		}
	}

	if s.createCounter != nil {
		s.createCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("severity", string(iss.Severity)),
		))
	}

	s.logger.Info(ctx, "created ticket",
		zap.String("ticket_id", t.ID),
		zap.String("file_path", t.FilePath),
		zap.String("severity", string(iss.Severity)),
	)

	span.SetAttributes(attribute.String("ticket_id", t.ID))
	return t, nil
}

// Get retrieves a ticket by ID.
func (s *service) Get(ctx context.Context, id string) (*Ticket, error) {
	_, span := s.tracer.Start(ctx, "ticket.get")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	return s.store.Get(id)
}

// List retrieves all tickets.
func (s *service) List(ctx context.Context) ([]*Ticket, error) {
	_, span := s.tracer.Start(ctx, "ticket.list")
	defer span.End()

	tickets, err := s.store.List()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result_count", len(tickets)))
	return tickets, nil
}

// UpdateWithModification attaches a rewrite outcome to the ticket.
func (s *service) UpdateWithModification(ctx context.Context, id string, mod *Modification) (*Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.update_modification")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", id),
		attribute.Bool("succeeded", mod != nil && mod.Succeeded),
	)

	if mod == nil {
		return nil, errors.New("modification result is required")
	}

	t, err := s.store.Update(id, func(t *Ticket) error {
		t.UpdatedAt = time.Now().UTC()
		if t.OriginalCode == "" {
			t.OriginalCode = mod.OriginalCode
		}
		if !mod.Succeeded {
			t.LastError = mod.Error
			return nil
		}
		if t.Status != StatusModified {
			if !t.Status.canTransition(StatusModified) {
				return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusModified)
			}
			t.Status = StatusModified
		}
		t.ModifiedCode = mod.ModifiedCode
		t.LastError = ""
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info(ctx, "attached modification",
		zap.String("ticket_id", id),
		zap.Bool("succeeded", mod.Succeeded),
	)
	return t, nil
}

// Complete stamps commit metadata on a modified ticket.
func (s *service) Complete(ctx context.Context, id, commitID, commitMessage string) (*Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.complete")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	t, err := s.store.Update(id, func(t *Ticket) error {
		if !t.Status.canTransition(StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusCompleted)
		}
		t.Status = StatusCompleted
		t.CommitID = commitID
		t.CommitMessage = commitMessage
		t.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.completeCounter != nil {
		s.completeCounter.Add(ctx, 1)
	}

	s.logger.Info(ctx, "completed ticket",
		zap.String("ticket_id", id),
		zap.String("commit_id", commitID),
	)
	return t, nil
}

// Reject marks the ticket rejected.
func (s *service) Reject(ctx context.Context, id string) (*Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.reject")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	t, err := s.store.Update(id, func(t *Ticket) error {
		if !t.Status.canTransition(StatusRejected) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, StatusRejected)
		}
		t.Status = StatusRejected
		t.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.rejectCounter != nil {
		s.rejectCounter.Add(ctx, 1)
	}

	s.logger.Info(ctx, "rejected ticket", zap.String("ticket_id", id))
	return t, nil
}

// Clear removes all tickets.
func (s *service) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "ticket.clear")
	defer span.End()

	if err := s.store.Clear(); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info(ctx, "cleared ticket store")
	return nil
}

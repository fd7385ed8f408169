package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/patch"

// rewriteConcurrency bounds parallel rewriter calls per plan.
const rewriteConcurrency = 4

// Rewriter is the capability interface for the external code-rewriting
// collaborator: given file content, a language hint, and the issue, it
// returns rewritten content or an error.
type Rewriter interface {
	Rewrite(ctx context.Context, content, language string, iss *issue.Issue) (string, error)
}

// Executor runs modification plans against a working tree.
type Executor struct {
	tickets  ticket.Service
	rewriter Rewriter
	logger   *logging.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	planCounter metric.Int64Counter
	fileCounter metric.Int64Counter
}

// NewExecutor creates a plan executor.
func NewExecutor(tickets ticket.Service, rewriter Rewriter, logger *logging.Logger) (*Executor, error) {
	if tickets == nil {
		return nil, fmt.Errorf("ticket service is required")
	}
	if rewriter == nil {
		return nil, fmt.Errorf("rewriter is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := &Executor{
		tickets:  tickets,
		rewriter: rewriter,
		logger:   logger.Named("patch"),
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	e.initMetrics()

	return e, nil
}

func (e *Executor) initMetrics() {
	var err error

	e.planCounter, err = e.meter.Int64Counter(
		"remedyd.patch.plans_total",
		metric.WithDescription("Total modification plans executed, labeled by outcome"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		e.logger.Warn(context.Background(), "failed to create plan counter", zap.Error(err))
	}

	e.fileCounter, err = e.meter.Int64Counter(
		"remedyd.patch.files_total",
		metric.WithDescription("Total per-file modifications, labeled by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		e.logger.Warn(context.Background(), "failed to create file counter", zap.Error(err))
	}
}

// NewPlan builds a modification plan for an issue.
func NewPlan(iss *issue.Issue, files []string) *ModificationPlan {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return &ModificationPlan{
		ID:            "pln-" + raw[:8],
		Issue:         iss,
		AffectedFiles: files,
		Status:        PlanPlanned,
		Timestamp:     time.Now().UTC(),
	}
}

// ExecutePlan rewrites every file in the plan and accumulates the
// per-file patches.
//
// Files run concurrently with bounded parallelism; a failing file never
// aborts its siblings. The aggregate is applied-successfully only when
// every file succeeded and the combined patch is non-empty.
func (e *Executor) ExecutePlan(ctx context.Context, plan *ModificationPlan, ticketID, workingDir string) (*PatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "patch.execute_plan")
	defer span.End()

	if plan == nil || plan.Issue == nil {
		return nil, fmt.Errorf("plan with issue is required")
	}
	span.SetAttributes(
		attribute.String("plan_id", plan.ID),
		attribute.String("ticket_id", ticketID),
		attribute.Int("file_count", len(plan.AffectedFiles)),
	)

	plan.Status = PlanInProgress

	results := make([]FileModificationResult, len(plan.AffectedFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rewriteConcurrency)
	for i, file := range plan.AffectedFiles {
		g.Go(func() error {
			results[i] = e.modifyFile(gctx, plan.Issue, ticketID, workingDir, file)
			return nil
		})
	}
	// Goroutines only record results, never fail the group.
	_ = g.Wait()

	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	result := &PatchResult{
		ID:       "pch-" + raw[:8],
		TicketID: ticketID,
		Results:  results,
	}

	var combined strings.Builder
	allOK := true
	var firstErr string
	for _, r := range results {
		if r.Status != FileSuccess {
			allOK = false
			if firstErr == "" {
				firstErr = fmt.Sprintf("%s: %s", r.File, r.Error)
			}
			continue
		}
		combined.WriteString(r.Patch)
	}
	result.PatchContent = combined.String()
	result.AppliedSuccessfully = allOK && result.PatchContent != ""
	if !allOK {
		result.Error = firstErr
	}

	if result.AppliedSuccessfully {
		plan.Status = PlanCompleted
	} else {
		plan.Status = PlanFailed
	}

	if e.planCounter != nil {
		e.planCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("success", result.AppliedSuccessfully),
		))
	}

	e.logger.Info(ctx, "executed modification plan",
		zap.String("plan_id", plan.ID),
		zap.String("ticket_id", ticketID),
		zap.Int("files", len(plan.AffectedFiles)),
		zap.Bool("success", result.AppliedSuccessfully),
	)

	span.SetAttributes(attribute.Bool("success", result.AppliedSuccessfully))
	return result, nil
}

// modifyFile runs the rewrite pipeline for one file. Every failure path
// is isolated into the returned result.
func (e *Executor) modifyFile(ctx context.Context, iss *issue.Issue, ticketID, workingDir, file string) FileModificationResult {
	res := FileModificationResult{File: file, Status: FileError}
	fail := func(format string, args ...any) FileModificationResult {
		res.Error = fmt.Sprintf(format, args...)
		if e.fileCounter != nil {
			e.fileCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		}
		return res
	}

	abs := filepath.Join(workingDir, filepath.FromSlash(file))
	data, err := os.ReadFile(abs)
	if err != nil {
		return fail("reading file: %v", err)
	}
	content := string(data)

	language := strings.TrimPrefix(filepath.Ext(file), ".")
	rewritten, err := e.rewriter.Rewrite(ctx, content, language, iss)
	if err != nil {
		if _, uerr := e.tickets.UpdateWithModification(ctx, ticketID, &ticket.Modification{
			OriginalCode: content,
			Succeeded:    false,
			Error:        err.Error(),
		}); uerr != nil {
			e.logger.Warn(ctx, "failed to record rewrite failure",
				zap.String("ticket_id", ticketID),
				zap.Error(uerr),
			)
		}
		return fail("rewrite failed: %v", err)
	}

	if _, err := e.tickets.UpdateWithModification(ctx, ticketID, &ticket.Modification{
		OriginalCode: content,
		ModifiedCode: rewritten,
		Succeeded:    true,
	}); err != nil {
		return fail("attaching modification: %v", err)
	}

	patchText, err := Generate(abs, content, rewritten, workingDir)
	if err != nil {
		return fail("generating patch: %v", err)
	}

	res.Status = FileSuccess
	res.Patch = patchText
	if e.fileCounter != nil {
		e.fileCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
	}
	return res
}

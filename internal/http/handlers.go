package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/remedyd/internal/gitops"
	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

// intakeConcurrency bounds parallel ticket creation during intake.
const intakeConcurrency = 8

// IssueIntakeRequest is the request body for POST /api/v1/issues.
// A batch of findings; each issue fans out into one ticket per
// affected file.
type IssueIntakeRequest struct {
	Issues []*issue.Intake `json:"issues"`

	// BasePath overrides the configured repository root for relevance
	// resolution.
	BasePath string `json:"basePath,omitempty"`
}

// IssueIntakeResponse carries partial results plus an error list.
type IssueIntakeResponse struct {
	Tickets []*ticket.Ticket `json:"tickets"`
	Errors  []string         `json:"errors,omitempty"`
}

// handleIssueIntake normalizes each submitted issue and creates tickets
// for its affected files. Failures are collected, never atomic.
func (s *Server) handleIssueIntake(c echo.Context) error {
	var req IssueIntakeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid intake request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Issues) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "issues field is required")
	}

	basePath := req.BasePath
	if basePath == "" {
		basePath = s.config.RepoRoot
	}

	var (
		mu      sync.Mutex
		tickets []*ticket.Ticket
		errs    []string
	)

	g, ctx := errgroup.WithContext(c.Request().Context())
	g.SetLimit(intakeConcurrency)
	for _, in := range req.Issues {
		iss, err := issue.Normalize(in)
		if err != nil {
			mu.Lock()
			errs = append(errs, err.Error())
			mu.Unlock()
			continue
		}
		for _, file := range iss.AffectedFiles {
			g.Go(func() error {
				tk, err := s.tickets.CreateFromIssue(ctx, iss, file, basePath)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err.Error())
					return nil
				}
				tickets = append(tickets, tk)
				return nil
			})
		}
	}
	_ = g.Wait()

	return c.JSON(http.StatusCreated, IssueIntakeResponse{Tickets: tickets, Errors: errs})
}

// TicketListResponse is the response body for GET /api/v1/tickets.
type TicketListResponse struct {
	Tickets []*ticket.Ticket `json:"tickets"`
}

func (s *Server) handleListTickets(c echo.Context) error {
	tickets, err := s.tickets.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, TicketListResponse{Tickets: tickets})
}

func (s *Server) handleGetTicket(c echo.Context) error {
	tk, err := s.tickets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ticketError(err)
	}
	return c.JSON(http.StatusOK, tk)
}

// TicketAction is the action tag for POST /api/v1/tickets/:id.
type TicketAction string

const (
	ActionModify   TicketAction = "modify"
	ActionComplete TicketAction = "complete"
	ActionReject   TicketAction = "reject"
)

// ModificationPayload carries a rewrite outcome for the modify action.
type ModificationPayload struct {
	OriginalCode string `json:"originalCode,omitempty"`
	ModifiedCode string `json:"modifiedCode,omitempty"`
	Succeeded    bool   `json:"succeeded"`
	Error        string `json:"error,omitempty"`
}

// UpdateTicketRequest is the request body for POST /api/v1/tickets/:id.
type UpdateTicketRequest struct {
	Action        TicketAction         `json:"action"`
	Modification  *ModificationPayload `json:"modification,omitempty"`
	CommitID      string               `json:"commitId,omitempty"`
	CommitMessage string               `json:"commitMessage,omitempty"`
}

func (s *Server) handleUpdateTicket(c echo.Context) error {
	var req UpdateTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	var (
		tk  *ticket.Ticket
		err error
	)
	switch req.Action {
	case ActionModify:
		if req.Modification == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "modification payload is required")
		}
		tk, err = s.tickets.UpdateWithModification(ctx, id, &ticket.Modification{
			OriginalCode: req.Modification.OriginalCode,
			ModifiedCode: req.Modification.ModifiedCode,
			Succeeded:    req.Modification.Succeeded,
			Error:        req.Modification.Error,
		})
	case ActionComplete:
		tk, err = s.tickets.Complete(ctx, id, req.CommitID, req.CommitMessage)
	case ActionReject:
		tk, err = s.tickets.Reject(ctx, id)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}
	if err != nil {
		return ticketError(err)
	}
	return c.JSON(http.StatusOK, tk)
}

// ApplyTicketRequest is the request body for POST /api/v1/tickets/:id/apply.
type ApplyTicketRequest struct {
	WorkingDir string `json:"workingDir,omitempty"`
}

// handleApplyTicket applies the ticket's patch and completes the ticket
// with the resulting commit metadata.
func (s *Server) handleApplyTicket(c echo.Context) error {
	var req ApplyTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	tk, err := s.tickets.Get(ctx, id)
	if err != nil {
		return ticketError(err)
	}

	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = s.config.RepoRoot
	}

	result, err := s.gitops.ApplyFix(ctx, tk, &gitops.ApplyOptions{WorkingDir: workingDir})
	if err != nil {
		if errors.Is(err, gitops.ErrUncommittedChanges) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := s.tickets.Complete(ctx, id, result.CommitID, result.CommitMessage); err != nil {
		// The commit exists; surface the bookkeeping failure.
		return ticketError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleClearTickets(c echo.Context) error {
	if err := s.tickets.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ticketError maps ticket errors to HTTP status codes.
func ticketError(err error) error {
	switch {
	case errors.Is(err, ticket.ErrTicketNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ticket.ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

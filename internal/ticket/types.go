package ticket

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
)

// Status is the ticket lifecycle state.
type Status string

const (
	// StatusPending is the initial state after creation.
	StatusPending Status = "pending"
	// StatusModified means a successful modification result is attached.
	StatusModified Status = "modified"
	// StatusCompleted means the fix was committed. Terminal.
	StatusCompleted Status = "completed"
	// StatusRejected means an operator declined the fix. Terminal.
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// canTransition encodes the legal edges of the state machine.
func (s Status) canTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusModified || to == StatusRejected
	case StatusModified:
		return to == StatusCompleted || to == StatusRejected
	default:
		return false
	}
}

// Ticket is the unit of remediation state.
type Ticket struct {
	// ID is the opaque unique identifier, generated at creation.
	ID string `json:"id"`

	// Issue is the embedded copy of the originating issue. Immutable.
	Issue issue.Issue `json:"issue"`

	// FilePath is the repository-relative target file. The "unknown"
	// sentinel is permitted.
	FilePath string `json:"file_path"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// OriginalCode is the file content before modification.
	OriginalCode string `json:"original_code,omitempty"`

	// ModifiedCode is set only after a successful modification attempt.
	ModifiedCode string `json:"modified_code,omitempty"`

	// GitBranch is the isolation branch, set only when one was created.
	GitBranch string `json:"git_branch,omitempty"`

	// CommitID and CommitMessage are set only on completion.
	CommitID      string `json:"commit_id,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`

	// LastError records the most recent failed modification attempt.
	// Diagnostics only; does not affect the state machine.
	LastError string `json:"last_error,omitempty"`

	// CreatedAt and UpdatedAt are record timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Modification is the outcome of one rewrite attempt on a ticket's file.
type Modification struct {
	// OriginalCode is the content the rewrite started from.
	OriginalCode string

	// ModifiedCode is the rewritten content. Empty unless Succeeded.
	ModifiedCode string

	// Succeeded reports whether the rewrite produced usable content.
	Succeeded bool

	// Error is the failure reason when Succeeded is false.
	Error string
}

// Resolver localizes an issue to candidate files. Satisfied by the
// relevance resolver; never fails.
type Resolver interface {
	Resolve(ctx context.Context, iss *issue.Issue, root string) []string
}

// BranchCreator creates or reuses an isolation branch for a ticket.
// Satisfied by the gitops service.
type BranchCreator interface {
	CreateFeatureBranch(ctx context.Context, t *Ticket, workingDir string) (string, error)
}

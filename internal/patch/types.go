package patch

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
)

// ErrEmptyPatch is returned when original and modified content are
// identical and there is nothing to apply.
var ErrEmptyPatch = errors.New("patch: empty patch")

// PlanStatus tracks a modification plan through one execution run.
type PlanStatus string

const (
	// PlanPlanned is the initial state.
	PlanPlanned PlanStatus = "planned"
	// PlanInProgress means execution has started.
	PlanInProgress PlanStatus = "in_progress"
	// PlanCompleted means every file succeeded.
	PlanCompleted PlanStatus = "completed"
	// PlanFailed means at least one file failed.
	PlanFailed PlanStatus = "failed"
)

// ModificationPlan is an ephemeral unit of work spanning one or more
// files for a single issue. Not persisted beyond one execution run.
type ModificationPlan struct {
	ID            string       `json:"id"`
	Issue         *issue.Issue `json:"issue"`
	AffectedFiles []string     `json:"affected_files"`
	Description   string       `json:"description,omitempty"`
	Status        PlanStatus   `json:"status"`
	Timestamp     time.Time    `json:"timestamp"`
}

// FileStatus is the outcome of one file's modification.
type FileStatus string

const (
	// FileSuccess means the file was rewritten and a patch generated.
	FileSuccess FileStatus = "success"
	// FileError means the file failed; siblings are unaffected.
	FileError FileStatus = "error"
)

// FileModificationResult is the per-file outcome of plan execution.
type FileModificationResult struct {
	File   string     `json:"file"`
	Status FileStatus `json:"status"`
	Patch  string     `json:"patch,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// PatchResult aggregates a plan execution run.
type PatchResult struct {
	ID                  string                   `json:"id"`
	TicketID            string                   `json:"ticket_id"`
	PatchContent        string                   `json:"patch_content"`
	AppliedSuccessfully bool                     `json:"applied_successfully"`
	Results             []FileModificationResult `json:"results"`
	Error               string                   `json:"error,omitempty"`
}

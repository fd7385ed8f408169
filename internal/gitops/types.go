package gitops

import "errors"

// ErrUncommittedChanges is the precondition conflict: the working tree
// has local changes and applying a fix would mix them with the commit.
// Callers surface it distinctly so the operator can stash or commit
// first.
var ErrUncommittedChanges = errors.New("gitops: working tree has uncommitted changes")

// ApplyOptions tune one ApplyFix call.
type ApplyOptions struct {
	// WorkingDir overrides the configured repository root.
	WorkingDir string

	// CommitMessage overrides the message derived from the issue title.
	CommitMessage string
}

// ApplyResult is the commit metadata of a successful application.
type ApplyResult struct {
	CommitID      string `json:"commit_id"`
	CommitMessage string `json:"commit_message"`
	BranchName    string `json:"branch_name,omitempty"`
}

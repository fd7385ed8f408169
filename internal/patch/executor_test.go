package patch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

// fakeRewriter upper-cases content, or fails on the FAILME marker.
type fakeRewriter struct {
	failErr error
}

func (f *fakeRewriter) Rewrite(_ context.Context, content, _ string, _ *issue.Issue) (string, error) {
	if f.failErr != nil && strings.Contains(content, "FAILME") {
		return "", f.failErr
	}
	return strings.ToUpper(content), nil
}

func newTestExecutor(t *testing.T, rw Rewriter) (*Executor, ticket.Service) {
	t.Helper()
	store, err := ticket.NewStore(t.TempDir())
	require.NoError(t, err)
	tickets, err := ticket.NewService(nil, store, nil, nil, logging.NewNop())
	require.NoError(t, err)
	ex, err := NewExecutor(tickets, rw, logging.NewNop())
	require.NoError(t, err)
	return ex, tickets
}

func TestExecutePlan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.js"), []byte("let x = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "b.js"), []byte("let y = 2;\n"), 0o644))

	ex, tickets := newTestExecutor(t, &fakeRewriter{})
	ctx := context.Background()

	iss := &issue.Issue{Title: "shout everything"}
	tk, err := tickets.CreateFromIssue(ctx, iss, "src/a.js", "")
	require.NoError(t, err)

	plan := NewPlan(iss, []string{"src/a.js", "src/b.js"})
	result, err := ex.ExecutePlan(ctx, plan, tk.ID, dir)
	require.NoError(t, err)

	assert.True(t, result.AppliedSuccessfully)
	assert.Equal(t, PlanCompleted, plan.Status)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, FileSuccess, r.Status)
		assert.NotEmpty(t, r.Patch)
	}
	assert.Contains(t, result.PatchContent, "--- a/src/a.js")
	assert.Contains(t, result.PatchContent, "--- a/src/b.js")

	// The ticket advanced to modified with the rewritten content.
	got, err := tickets.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusModified, got.Status)
	assert.Equal(t, "LET Y = 2;\n", got.ModifiedCode)
}

func TestExecutePlanMissingFileIsolated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.js"), []byte("let x = 1;\n"), 0o644))

	ex, tickets := newTestExecutor(t, &fakeRewriter{})
	ctx := context.Background()

	iss := &issue.Issue{Title: "shout"}
	tk, err := tickets.CreateFromIssue(ctx, iss, "ok.js", "")
	require.NoError(t, err)

	plan := NewPlan(iss, []string{"missing.js", "ok.js"})
	result, err := ex.ExecutePlan(ctx, plan, tk.ID, dir)
	require.NoError(t, err)

	assert.False(t, result.AppliedSuccessfully)
	assert.Equal(t, PlanFailed, plan.Status)
	require.Len(t, result.Results, 2)
	assert.Equal(t, FileError, result.Results[0].Status)
	assert.Contains(t, result.Results[0].Error, "reading file")
	assert.Equal(t, FileSuccess, result.Results[1].Status)
	assert.NotEmpty(t, result.Error)
}

func TestExecutePlanRewriteFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.js"), []byte("FAILME\n"), 0o644))

	rw := &fakeRewriter{failErr: errors.New("model refused")}
	ex, tickets := newTestExecutor(t, rw)
	ctx := context.Background()

	iss := &issue.Issue{Title: "t"}
	tk, err := tickets.CreateFromIssue(ctx, iss, "bad.js", "")
	require.NoError(t, err)

	plan := NewPlan(iss, []string{"bad.js"})
	result, err := ex.ExecutePlan(ctx, plan, tk.ID, dir)
	require.NoError(t, err)

	assert.False(t, result.AppliedSuccessfully)
	assert.Contains(t, result.Results[0].Error, "model refused")

	// The failure is recorded on the ticket without advancing it.
	got, err := tickets.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusPending, got.Status)
	assert.Equal(t, "model refused", got.LastError)
}

func TestExecutePlanUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "same.js"), []byte("ALREADY UPPER\n"), 0o644))

	ex, tickets := newTestExecutor(t, &fakeRewriter{})
	ctx := context.Background()

	iss := &issue.Issue{Title: "t"}
	tk, err := tickets.CreateFromIssue(ctx, iss, "same.js", "")
	require.NoError(t, err)

	plan := NewPlan(iss, []string{"same.js"})
	result, err := ex.ExecutePlan(ctx, plan, tk.ID, dir)
	require.NoError(t, err)

	assert.False(t, result.AppliedSuccessfully)
	assert.Contains(t, result.Results[0].Error, "empty patch")
}

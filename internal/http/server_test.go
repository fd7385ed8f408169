package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/gitops"
	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/ticket"
)

func newTestServer(t *testing.T, repoRoot string) (*Server, ticket.Service) {
	t.Helper()

	store, err := ticket.NewStore(t.TempDir())
	require.NoError(t, err)
	tickets, err := ticket.NewService(nil, store, nil, nil, logging.NewNop())
	require.NoError(t, err)
	git, err := gitops.NewService(nil, logging.NewNop())
	require.NoError(t, err)

	srv, err := NewServer(tickets, git, logging.NewNop(), &Config{
		Host:     "localhost",
		Port:     0,
		RepoRoot: repoRoot,
	})
	require.NoError(t, err)
	return srv, tickets
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// initRepo creates a repository with one committed file.
func initRepo(t *testing.T, file, content string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(file)
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleIssueIntake(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body := `{
		"issues": [
			{"title": "Unused variable x", "severity": "low", "affectedFiles": ["utils.js", "main.js"]},
			{"title": "Critical bug", "severity": "Critical security flaw", "files": ["auth.js"]}
		]
	}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/issues", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp IssueIntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	require.Len(t, resp.Tickets, 3)

	bySeverity := map[issue.Severity]int{}
	for _, tk := range resp.Tickets {
		assert.Equal(t, ticket.StatusPending, tk.Status)
		bySeverity[tk.Issue.Severity]++
	}
	assert.Equal(t, 2, bySeverity[issue.SeverityLow])
	assert.Equal(t, 1, bySeverity[issue.SeverityHigh])
}

func TestHandleIssueIntakeDefaultsUnknown(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body := `{"issues": [{"title": "somewhere"}]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/issues", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp IssueIntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, issue.UnknownFile, resp.Tickets[0].FilePath)
}

func TestHandleIssueIntakeFiltersNonStringFiles(t *testing.T) {
	srv, _ := newTestServer(t, "")

	body := `{"issues": [{"title": "Unused variable x", "affectedFiles": ["utils.js", 5, null]}]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/issues", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp IssueIntakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, "utils.js", resp.Tickets[0].FilePath)
}

func TestHandleIssueIntakeBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/issues", `{"issues": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/issues", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetTicket(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "a.go", "")
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tickets/"+tk.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tickets/tkt-missing1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListTickets(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	for _, f := range []string{"a.go", "b.go"} {
		_, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, f, "")
		require.NoError(t, err)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tickets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TicketListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tickets, 2)
}

func TestHandleUpdateTicket(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "a.go", "")
	require.NoError(t, err)

	// Completing a pending ticket is a conflict.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID,
		`{"action": "complete", "commitId": "abc", "commitMessage": "m"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Attach a modification.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID,
		`{"action": "modify", "modification": {"originalCode": "a", "modifiedCode": "b", "succeeded": true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got ticket.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ticket.StatusModified, got.Status)

	// Now completion succeeds.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID,
		`{"action": "complete", "commitId": "abc", "commitMessage": "m"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ticket.StatusCompleted, got.Status)
	assert.Equal(t, "abc", got.CommitID)
}

func TestHandleUpdateTicketReject(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "a.go", "")
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID, `{"action": "reject"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second reject conflicts.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID, `{"action": "reject"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleUpdateTicketBadAction(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "a.go", "")
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID, `{"action": "explode"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID, `{"action": "modify"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleApplyTicket(t *testing.T) {
	original := "let x = 1;\n"
	modified := "const x = 1;\n"
	dir := initRepo(t, "app.js", original)
	srv, tickets := newTestServer(t, dir)

	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "use const"}, "app.js", "")
	require.NoError(t, err)
	_, err = tickets.UpdateWithModification(t.Context(), tk.ID, &ticket.Modification{
		OriginalCode: original,
		ModifiedCode: modified,
		Succeeded:    true,
	})
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID+"/apply", "{}")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result gitops.ApplyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.CommitID)

	got, err := tickets.Get(t.Context(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCompleted, got.Status)
	assert.Equal(t, result.CommitID, got.CommitID)

	data, err := os.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	assert.Equal(t, modified, string(data))
}

func TestHandleApplyTicketConflict(t *testing.T) {
	original := "let x = 1;\n"
	dir := initRepo(t, "app.js", original)
	srv, tickets := newTestServer(t, dir)

	tk, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "app.js", "")
	require.NoError(t, err)
	_, err = tickets.UpdateWithModification(t.Context(), tk.ID, &ticket.Modification{
		OriginalCode: original,
		ModifiedCode: "const x = 1;\n",
		Succeeded:    true,
	})
	require.NoError(t, err)

	// Dirty the tree.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("let x = 9;\n"), 0o644))

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tickets/"+tk.ID+"/apply", "{}")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Ticket stays modified.
	got, err := tickets.Get(t.Context(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusModified, got.Status)
}

func TestHandleClearTickets(t *testing.T) {
	srv, tickets := newTestServer(t, "")
	_, err := tickets.CreateFromIssue(t.Context(), &issue.Issue{Title: "t"}, "a.go", "")
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/tickets", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	list, err := tickets.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, list)

	// Idempotent.
	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/tickets", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

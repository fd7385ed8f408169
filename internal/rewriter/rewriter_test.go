package rewriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
	"github.com/fyrsmithlabs/remedyd/internal/secrets"
)

// fakeModel replays a canned reply and captures the outbound prompt.
type fakeModel struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestRewriteExtractsCodeBlock(t *testing.T) {
	model := &fakeModel{reply: "Here is the fix:\n```js\nconst x = 1;\n```\nDone."}
	svc := NewServiceWithModel(model, nil, logging.NewNop())

	got, err := svc.Rewrite(context.Background(), "let x = 1;\n", "js", &issue.Issue{Title: "use const"})
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;\n", got)
}

func TestRewriteKeepsNoTrailingNewline(t *testing.T) {
	model := &fakeModel{reply: "```js\nconst x = 1;\n```"}
	svc := NewServiceWithModel(model, nil, logging.NewNop())

	got, err := svc.Rewrite(context.Background(), "let x = 1;", "js", &issue.Issue{Title: "use const"})
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;", got)
}

func TestRewriteNoCodeBlock(t *testing.T) {
	model := &fakeModel{reply: "I cannot modify this file."}
	svc := NewServiceWithModel(model, nil, logging.NewNop())

	_, err := svc.Rewrite(context.Background(), "x\n", "js", &issue.Issue{Title: "t"})
	assert.ErrorIs(t, err, ErrRewriteFailed)
}

func TestRewriteTransportFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	svc := NewServiceWithModel(model, nil, logging.NewNop())

	_, err := svc.Rewrite(context.Background(), "x\n", "js", &issue.Issue{Title: "t"})
	assert.ErrorIs(t, err, ErrRewriteFailed)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRewriteScrubsOutboundContent(t *testing.T) {
	scrubber, err := secrets.New(nil)
	require.NoError(t, err)

	model := &fakeModel{reply: "```js\nok();\n```"}
	svc := NewServiceWithModel(model, scrubber, logging.NewNop())

	content := `const apiKey = "sk_live_abcdefghijklmnop1234";` + "\n"
	_, err = svc.Rewrite(context.Background(), content, "js", &issue.Issue{Title: "hardcoded credentials"})
	require.NoError(t, err)

	outbound := strings.Join(model.prompts, "\n")
	assert.NotContains(t, outbound, "sk_live_abcdefghijklmnop1234")
	assert.Contains(t, outbound, "[REDACTED]")
}

func TestRewriteKeepsRedactionInResult(t *testing.T) {
	scrubber, err := secrets.New(nil)
	require.NoError(t, err)

	model := &fakeModel{reply: "```js\nconst apiKey = \"[REDACTED]\";\nok();\n```"}
	svc := NewServiceWithModel(model, scrubber, logging.NewNop())

	content := `const apiKey = "sk_live_abcdefghijklmnop1234";` + "\n"
	got, err := svc.Rewrite(context.Background(), content, "js", &issue.Issue{Title: "hardcoded credentials"})
	require.NoError(t, err)

	// The model only ever sees the redacted text, so the returned code
	// carries the placeholder, never the live secret.
	assert.NotContains(t, got, "sk_live_abcdefghijklmnop1234")
	assert.Contains(t, got, "[REDACTED]")
}

func TestRewriteIssueRequired(t *testing.T) {
	svc := NewServiceWithModel(&fakeModel{reply: "```\nx\n```"}, nil, logging.NewNop())
	_, err := svc.Rewrite(context.Background(), "x\n", "js", nil)
	assert.ErrorIs(t, err, ErrRewriteFailed)
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"language tag", "```go\npackage main\n```", "package main\n"},
		{"no tag", "```\nhello\n```", "hello\n"},
		{"surrounding prose", "intro\n```py\nx = 1\n```\noutro", "x = 1\n"},
		{"first block wins", "```\none\n```\n```\ntwo\n```", "one\n"},
		{"no fence", "just text", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCodeBlock(tt.reply))
		})
	}
}

package relevance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

func TestTextMatchRequiresContentHit(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"invoice.go": "package billing\n",
		"ledger.go":  "package billing\n// invoice rounding drift under load\n",
	})

	s := NewTextMatchStrategy(logging.NewNop())
	iss := &issue.Issue{Title: "invoice rounding drift"}
	paths, err := s.Resolve(context.Background(), iss, root)
	require.NoError(t, err)

	// invoice.go matches only by filename; without a content hit it
	// scores nothing and stays out of the results.
	assert.Equal(t, []string{"ledger.go"}, paths)
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "quoted identifiers",
			text: "The `processData` helper and 'renderView' both break",
			want: []string{"processData", "renderView"},
		},
		{
			name: "function and class references",
			text: "function validateInput throws, class UserStore leaks",
			want: []string{"validateInput", "UserStore"},
		},
		{
			name: "upper snake constants",
			text: "MAX_RETRY_COUNT is never honored",
			want: []string{"MAX_RETRY_COUNT"},
		},
		{
			name: "deduplicates preserving first appearance",
			text: "`parse` fails; calling `parse` twice makes it worse",
			want: []string{"parse"},
		},
		{
			name: "no entities",
			text: "something is generally wrong somewhere",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEntities(tt.text))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"unit test for parser is flaky", CategoryTest},
		{"SQL injection in the login form", CategorySecurity},
		{"missing env var in production config", CategoryConfig},
		{"page load is slow under concurrency", CategoryPerformance},
		{"button label has a typo", CategoryGeneral},
		// Test keywords win over security in declaration order.
		{"auth middleware test is broken", CategoryTest},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	t.Run("lowercases and drops short words and stop words", func(t *testing.T) {
		got := ExtractKeywords("The Parser should FAIL on bad UTF8 input")
		assert.Equal(t, []string{"parser", "fail", "utf8", "input"}, got)
	})

	t.Run("caps at ten keywords", func(t *testing.T) {
		got := ExtractKeywords("alpha bravo charlie delta echoed foxtrot golfed hotel india juliet kilos limas")
		assert.Len(t, got, 10)
		assert.Equal(t, "alpha", got[0])
		assert.NotContains(t, got, "limas")
	})

	t.Run("deduplicates", func(t *testing.T) {
		got := ExtractKeywords("retry retry retry backoff")
		assert.Equal(t, []string{"retry", "backoff"}, got)
	})
}

func TestRank(t *testing.T) {
	t.Run("descending score", func(t *testing.T) {
		got := rank([]scored{
			{path: "low.go", score: 1, order: 0},
			{path: "high.go", score: 9, order: 1},
			{path: "mid.go", score: 4, order: 2},
		}, 10)
		assert.Equal(t, []string{"high.go", "mid.go", "low.go"}, got)
	})

	t.Run("ties broken by traversal order", func(t *testing.T) {
		got := rank([]scored{
			{path: "b.go", score: 3, order: 1},
			{path: "a.go", score: 3, order: 0},
			{path: "c.go", score: 3, order: 2},
		}, 10)
		assert.Equal(t, []string{"a.go", "b.go", "c.go"}, got)
	})

	t.Run("caps at limit and drops zero scores", func(t *testing.T) {
		got := rank([]scored{
			{path: "a.go", score: 5, order: 0},
			{path: "b.go", score: 4, order: 1},
			{path: "c.go", score: 3, order: 2},
			{path: "d.go", score: 0, order: 3},
		}, 2)
		assert.Equal(t, []string{"a.go", "b.go"}, got)
	})
}

func TestChunkContent(t *testing.T) {
	t.Run("small content is one chunk", func(t *testing.T) {
		chunks := chunkContent("short", 100)
		assert.Equal(t, []string{"short"}, chunks)
	})

	t.Run("breaks at newline inside the window", func(t *testing.T) {
		content := strings.Repeat("x", 40) + "\n" + strings.Repeat("y", 40)
		chunks := chunkContent(content, 60)
		assert.Len(t, chunks, 2)
		assert.True(t, strings.HasSuffix(chunks[0], "\n"))
		assert.Equal(t, content, strings.Join(chunks, ""))
	})

	t.Run("round-trips without loss", func(t *testing.T) {
		content := strings.Repeat("line one\nline two\nline three\n", 50)
		chunks := chunkContent(content, 120)
		assert.Equal(t, content, strings.Join(chunks, ""))
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 120)
		}
	})
}

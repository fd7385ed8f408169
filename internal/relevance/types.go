package relevance

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
)

// ErrIndexUnavailable is returned by a SimilarityIndex when the embedding
// backend cannot be reached. The resolver treats it as a signal to fall
// through to text matching.
var ErrIndexUnavailable = errors.New("relevance: similarity index unavailable")

// Strategy resolves an issue to candidate files.
//
// An empty result (with nil error) means the strategy has nothing to
// contribute and the cascade moves on. An error is logged and treated
// the same way; strategies never abort resolution.
type Strategy interface {
	// Name identifies the strategy in logs and traces.
	Name() string

	// Resolve returns ranked repository-relative file paths.
	Resolve(ctx context.Context, iss *issue.Issue, root string) ([]string, error)
}

// SimilarityIndex is the capability interface for semantic
// nearest-neighbor search over a repository's file contents.
//
// Implementations chunk and embed file contents on first use per root.
// Test doubles implement the same interface deterministically.
type SimilarityIndex interface {
	// Search returns up to limit repository-relative paths ranked by
	// similarity to the query.
	Search(ctx context.Context, root, query string, limit int) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// scored pairs a path with its relevance score during ranking.
type scored struct {
	path  string
	score int
	order int
}

// rank sorts by descending score, ties broken by first-encountered order
// during traversal, and returns up to limit paths with score > 0.
func rank(candidates []scored, limit int) []string {
	// Insertion sort keeps the tie-break stable without extra bookkeeping.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0; j-- {
			a, b := candidates[j-1], candidates[j]
			if b.score > a.score || (b.score == a.score && b.order < a.order) {
				candidates[j-1], candidates[j] = b, a
			} else {
				break
			}
		}
	}

	out := make([]string, 0, limit)
	for _, c := range candidates {
		if c.score <= 0 {
			continue
		}
		out = append(out, c.path)
		if len(out) == limit {
			break
		}
	}
	return out
}

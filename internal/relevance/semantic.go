package relevance

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

const (
	// minSemanticQueryLength gates the semantic strategy: shorter
	// queries carry too little signal to embed and skip straight to
	// text matching.
	minSemanticQueryLength = 20

	maxSemanticResults = 5
)

// SemanticStrategy performs nearest-neighbor search over chunked file
// contents via a SimilarityIndex.
type SemanticStrategy struct {
	index  SimilarityIndex
	logger *logging.Logger
}

// NewSemanticStrategy creates the semantic similarity strategy. A nil
// index disables the strategy (it always falls through).
func NewSemanticStrategy(index SimilarityIndex, logger *logging.Logger) *SemanticStrategy {
	return &SemanticStrategy{index: index, logger: logger}
}

// Name identifies the strategy.
func (s *SemanticStrategy) Name() string { return "semantic" }

// Resolve queries the similarity index. Any backend failure is reported
// as an error so the cascade falls through to text matching.
func (s *SemanticStrategy) Resolve(ctx context.Context, iss *issue.Issue, root string) ([]string, error) {
	if s.index == nil {
		return nil, nil
	}

	query := iss.Text()
	if len(query) < minSemanticQueryLength {
		s.logger.Debug(ctx, "query too short for semantic search", zap.Int("length", len(query)))
		return nil, nil
	}

	return s.index.Search(ctx, root, query, maxSemanticResults)
}

package relevance

import (
	"context"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

const (
	maxKeywords         = 10
	minKeywordLength    = 4
	maxTextMatchResults = 3
	filenameBonus       = 2
)

// stopWords are common words removed before keyword matching.
var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true,
	"have": true, "when": true, "where": true, "which": true,
	"should": true, "would": true, "could": true, "there": true,
	"their": true, "about": true, "after": true, "before": true,
	"into": true, "does": true, "must": true, "been": true,
	"them": true, "then": true, "than": true, "some": true,
	"will": true, "file": true, "code": true, "issue": true,
}

var wordPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// TextMatchStrategy is the last-resort strategy: plain keyword scoring
// over file contents.
type TextMatchStrategy struct {
	logger *logging.Logger
}

// NewTextMatchStrategy creates the simple text match strategy.
func NewTextMatchStrategy(logger *logging.Logger) *TextMatchStrategy {
	return &TextMatchStrategy{logger: logger}
}

// Name identifies the strategy.
func (s *TextMatchStrategy) Name() string { return "textmatch" }

// Resolve scores each file by keyword hit count, with a +2 bonus when a
// keyword that hit the content also appears in the filename, and
// returns the top 3. A filename match without a content hit scores
// nothing.
func (s *TextMatchStrategy) Resolve(ctx context.Context, iss *issue.Issue, root string) ([]string, error) {
	keywords := ExtractKeywords(iss.Text())
	if len(keywords) == 0 {
		return nil, nil
	}

	var candidates []scored
	order := 0
	err := walkSourceFiles(ctx, root, s.logger, func(relPath, absPath string) error {
		content, ok := readTextFile(absPath)
		if !ok {
			return nil
		}

		lowerContent := strings.ToLower(content)
		lowerPath := strings.ToLower(relPath)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lowerContent, kw) {
				score++
				if strings.Contains(lowerPath, kw) {
					score += filenameBonus
				}
			}
		}

		if score > 0 {
			candidates = append(candidates, scored{path: relPath, score: score, order: order})
		}
		order++
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rank(candidates, maxTextMatchResults), nil
}

// ExtractKeywords returns up to 10 lower-cased keywords (length > 3,
// stop words removed) in order of first appearance.
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) < minKeywordLength || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

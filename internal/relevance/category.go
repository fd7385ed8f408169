package relevance

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// Category classifies an issue for heuristic file selection.
type Category string

const (
	// CategoryTest covers test failures and missing coverage.
	CategoryTest Category = "test"
	// CategorySecurity covers auth, injection, and credential issues.
	CategorySecurity Category = "security"
	// CategoryConfig covers configuration and environment issues.
	CategoryConfig Category = "config"
	// CategoryPerformance covers speed and resource issues.
	CategoryPerformance Category = "performance"
	// CategoryGeneral means no dedicated heuristic applies.
	CategoryGeneral Category = "general"
)

const maxCategoryResults = 10

// categoryKeywords classify issue text by substring match. First
// category with a hit wins, in declaration order.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryTest, []string{"test", "spec", "mock", "assert", "coverage"}},
	{CategorySecurity, []string{"auth", "token", "password", "injection", "xss", "csrf", "vulnerab", "secur", "credential", "sanitiz"}},
	{CategoryConfig, []string{"config", "environment", "env var", "setting", "yaml", "dotenv"}},
	{CategoryPerformance, []string{"performance", "slow", "optimiz", "latency", "memory leak", "bottleneck", "n+1"}},
}

// securityTerms select files whose path suggests auth/credential logic.
var securityTerms = []string{"auth", "login", "token", "password", "session", "secur", "crypt", "permission"}

// configExtensions select configuration files.
var configExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".env": true, ".conf": true,
}

// dataProcessingMarkers are call patterns indicative of data-heavy code
// paths, used by the performance heuristic.
var dataProcessingMarkers = []string{
	".map(", ".filter(", ".reduce(", ".forEach(", ".sort(",
	"for (", "for(", "range ", "while (", "SELECT ",
}

// CategoryStrategy classifies the issue and applies a dedicated
// file-selection heuristic for the category.
type CategoryStrategy struct {
	logger *logging.Logger
}

// NewCategoryStrategy creates the categorical heuristics strategy.
func NewCategoryStrategy(logger *logging.Logger) *CategoryStrategy {
	return &CategoryStrategy{logger: logger}
}

// Name identifies the strategy.
func (s *CategoryStrategy) Name() string { return "category" }

// Resolve short-circuits to the category's heuristic when the issue
// classifies as anything but general.
func (s *CategoryStrategy) Resolve(ctx context.Context, iss *issue.Issue, root string) ([]string, error) {
	switch Classify(iss.Text()) {
	case CategoryTest:
		return s.selectByPath(ctx, root, func(relPath string) bool {
			lower := strings.ToLower(relPath)
			base := filepath.Base(lower)
			return strings.Contains(base, "test") || strings.Contains(base, ".spec.") ||
				strings.Contains(base, "mock") || strings.HasPrefix(lower, "tests/") ||
				strings.Contains(lower, "/tests/") || strings.Contains(lower, "__tests__")
		})
	case CategorySecurity:
		return s.selectByPath(ctx, root, func(relPath string) bool {
			if configExtensions[filepath.Ext(relPath)] {
				return false
			}
			lower := strings.ToLower(relPath)
			for _, term := range securityTerms {
				if strings.Contains(lower, term) {
					return true
				}
			}
			return false
		})
	case CategoryConfig:
		return s.selectByPath(ctx, root, func(relPath string) bool {
			base := strings.ToLower(filepath.Base(relPath))
			return configExtensions[filepath.Ext(base)] ||
				strings.Contains(base, "config") || strings.Contains(base, "settings")
		})
	case CategoryPerformance:
		return s.selectByContent(ctx, root)
	default:
		return nil, nil
	}
}

// Classify maps issue text to a category by keyword sets.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}

func (s *CategoryStrategy) selectByPath(ctx context.Context, root string, match func(relPath string) bool) ([]string, error) {
	var results []string
	err := walkSourceFiles(ctx, root, s.logger, func(relPath, absPath string) error {
		if len(results) >= maxCategoryResults {
			return filepath.SkipAll
		}
		if match(relPath) {
			results = append(results, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// selectByContent picks files whose content shows at least two distinct
// data-processing call patterns.
func (s *CategoryStrategy) selectByContent(ctx context.Context, root string) ([]string, error) {
	var candidates []scored
	order := 0
	err := walkSourceFiles(ctx, root, s.logger, func(relPath, absPath string) error {
		content, ok := readTextFile(absPath)
		if !ok {
			return nil
		}
		hits := 0
		for _, marker := range dataProcessingMarkers {
			if strings.Contains(content, marker) {
				hits++
			}
		}
		if hits >= 2 {
			candidates = append(candidates, scored{path: relPath, score: hits, order: order})
		}
		order++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rank(candidates, maxCategoryResults), nil
}

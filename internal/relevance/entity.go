package relevance

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/remedyd/internal/issue"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// Scoring weights for entity matches.
const (
	scoreFilenameMatch = 5
	scorePatternMatch  = 2
	scoreMention       = 1

	maxEntityResults = 5
)

var (
	quotedIdentPattern = regexp.MustCompile("[`'\"]([A-Za-z_][A-Za-z0-9_]{1,63})[`'\"]")
	functionPattern    = regexp.MustCompile(`\bfunction\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classPattern       = regexp.MustCompile(`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)`)
	upperSnakePattern  = regexp.MustCompile(`\b([A-Z][A-Z0-9]+(?:_[A-Z0-9]+)+)\b`)
)

// EntityStrategy extracts identifiers named in the issue and matches
// them against file names and declaration sites.
type EntityStrategy struct {
	logger *logging.Logger
}

// NewEntityStrategy creates the entity extraction strategy.
func NewEntityStrategy(logger *logging.Logger) *EntityStrategy {
	return &EntityStrategy{logger: logger}
}

// Name identifies the strategy.
func (s *EntityStrategy) Name() string { return "entity" }

// Resolve scores files against every extracted entity: +5 for a filename
// match, +2 per declaration pattern (counted once per entity), +1 per
// plain substring mention. Returns the top 5 by score.
func (s *EntityStrategy) Resolve(ctx context.Context, iss *issue.Issue, root string) ([]string, error) {
	entities := extractEntities(iss.Text())
	if len(entities) == 0 {
		return nil, nil
	}

	var candidates []scored
	order := 0
	err := walkSourceFiles(ctx, root, s.logger, func(relPath, absPath string) error {
		content, ok := readTextFile(absPath)
		if !ok {
			return nil
		}

		score := 0
		base := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
		for _, entity := range entities {
			if strings.EqualFold(base, entity) {
				score += scoreFilenameMatch
			}
			if matchesDeclaration(content, entity) {
				score += scorePatternMatch
			}
			score += scoreMention * strings.Count(content, entity)
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

	return rank(candidates, maxEntityResults), nil
}

// extractEntities pulls candidate identifiers from the issue text:
// quoted identifiers, `function X` / `class X` references, and
// upper-snake-case constants. Order of first appearance is preserved.
func extractEntities(text string) []string {
	seen := make(map[string]bool)
	var entities []string

	add := func(matches [][]string) {
		for _, m := range matches {
			name := m[1]
			if !seen[name] {
				seen[name] = true
				entities = append(entities, name)
			}
		}
	}

	add(quotedIdentPattern.FindAllStringSubmatch(text, -1))
	add(functionPattern.FindAllStringSubmatch(text, -1))
	add(classPattern.FindAllStringSubmatch(text, -1))
	add(upperSnakePattern.FindAllStringSubmatch(text, -1))

	return entities
}

// declarationTemplates cover the common declaration forms across the
// languages in the extension allow-list.
var declarationTemplates = []string{
	"function %s(",
	"function %s (",
	"class %s {",
	"class %s(",
	"class %s:",
	"const %s =",
	"let %s =",
	"var %s =",
	"func %s(",
	"def %s(",
}

// matchesDeclaration reports whether content declares the entity.
func matchesDeclaration(content, entity string) bool {
	for _, tmpl := range declarationTemplates {
		if strings.Contains(content, fmt.Sprintf(tmpl, entity)) {
			return true
		}
	}
	return false
}

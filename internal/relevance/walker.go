package relevance

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// skipDirs are directories that are never traversed during resolution.
// These typically contain generated code, dependencies, or version
// control data.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true, // Rust/Java build output
}

// sourceExtensions is the bounded allow-list of file types considered
// during resolution.
var sourceExtensions = map[string]bool{
	".go":    true,
	".js":    true,
	".jsx":   true,
	".ts":    true,
	".tsx":   true,
	".py":    true,
	".rb":    true,
	".java":  true,
	".kt":    true,
	".rs":    true,
	".c":     true,
	".h":     true,
	".cpp":   true,
	".hpp":   true,
	".cs":    true,
	".php":   true,
	".swift": true,
	".css":   true,
	".scss":  true,
	".html":  true,
	".sql":   true,
	".sh":    true,
	".json":  true,
	".yaml":  true,
	".yml":   true,
	".toml":  true,
	".ini":   true,
	".env":   true,
	".conf":  true,
	".md":    true,
}

// maxFileSize caps how much file content a strategy will read.
const maxFileSize = 1 << 20 // 1MB

// walkSourceFiles walks root in deterministic lexical order, invoking fn
// with each candidate file's forward-slash relative path. Directories in
// skipDirs are pruned; unreadable subdirectories are logged and skipped,
// never failing the whole walk.
func walkSourceFiles(ctx context.Context, root string, logger *logging.Logger, fn func(relPath, absPath string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn(ctx, "skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !sourceExtensions[filepath.Ext(d.Name())] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		return fn(filepath.ToSlash(rel), path)
	})
}

// readTextFile reads a candidate file, returning ok=false for files that
// are too large, unreadable, or not valid UTF-8 (binary).
func readTextFile(absPath string) (string, bool) {
	info, err := os.Stat(absPath)
	if err != nil || info.Size() > maxFileSize {
		return "", false
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(content) {
		return "", false
	}
	return string(content), true
}

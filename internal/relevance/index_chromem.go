package relevance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/remedyd/internal/embeddings"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// chunkSize bounds how much of a file goes into one indexed document.
const chunkSize = 1200

// ChromemIndex is an embedded SimilarityIndex backed by chromem-go.
//
// Each repository root gets its own collection, built lazily on first
// search. Construction is single-flight guarded so concurrent first
// searches share one indexing pass.
type ChromemIndex struct {
	db       *chromem.DB
	provider embeddings.Provider
	logger   *logging.Logger

	group singleflight.Group

	mu    sync.RWMutex
	built map[string]bool
}

// NewChromemIndex creates an embedded index persisted under path.
func NewChromemIndex(path string, provider embeddings.Provider, logger *logging.Logger) (*ChromemIndex, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	return &ChromemIndex{
		db:       db,
		provider: provider,
		logger:   logger.Named("index.chromem"),
		built:    make(map[string]bool),
	}, nil
}

// Search returns up to limit paths ranked by similarity to the query.
func (x *ChromemIndex) Search(ctx context.Context, root, query string, limit int) ([]string, error) {
	name := collectionName(root)

	if err := x.ensureBuilt(ctx, root, name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	collection := x.db.GetCollection(name, x.embeddingFunc())
	if collection == nil {
		return nil, fmt.Errorf("%w: collection %s missing after build", ErrIndexUnavailable, name)
	}

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	k := limit * 3 // chunks per file vary, over-fetch then dedupe
	if k > count {
		k = count
	}

	results, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, res := range results {
		path := res.Metadata["path"]
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
		if len(paths) == limit {
			break
		}
	}
	return paths, nil
}

// Close releases the embedding provider.
func (x *ChromemIndex) Close() error {
	return x.provider.Close()
}

// ensureBuilt indexes the root once per process, single-flight guarded.
func (x *ChromemIndex) ensureBuilt(ctx context.Context, root, name string) error {
	x.mu.RLock()
	done := x.built[name]
	x.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := x.group.Do(name, func() (interface{}, error) {
		x.mu.RLock()
		done := x.built[name]
		x.mu.RUnlock()
		if done {
			return nil, nil
		}

		if err := x.buildCollection(ctx, root, name); err != nil {
			return nil, err
		}

		x.mu.Lock()
		x.built[name] = true
		x.mu.Unlock()
		return nil, nil
	})
	return err
}

func (x *ChromemIndex) buildCollection(ctx context.Context, root, name string) error {
	collection, err := x.db.GetOrCreateCollection(name, nil, x.embeddingFunc())
	if err != nil {
		return fmt.Errorf("getting/creating collection %s: %w", name, err)
	}

	var docs []chromem.Document
	err = walkSourceFiles(ctx, root, x.logger, func(relPath, absPath string) error {
		content, ok := readTextFile(absPath)
		if !ok {
			return nil
		}
		for i, chunk := range chunkContent(content, chunkSize) {
			docs = append(docs, chromem.Document{
				ID:       fmt.Sprintf("%s#%d", relPath, i),
				Content:  chunk,
				Metadata: map[string]string{"path": relPath},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}
	if len(docs) == 0 {
		return nil
	}

	if err := collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	x.logger.Info(ctx, "semantic index built",
		zap.String("root", root),
		zap.Int("chunks", len(docs)),
	)
	return nil
}

func (x *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return x.provider.EmbedQuery(ctx, text)
	}
}

// collectionName derives a stable collection name from the root path.
func collectionName(root string) string {
	sum := sha256.Sum256([]byte(root))
	return "repo_" + hex.EncodeToString(sum[:8])
}

// chunkContent splits content into fixed-size chunks on line boundaries
// where possible.
func chunkContent(content string, size int) []string {
	if len(content) <= size {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= size {
			chunks = append(chunks, content)
			break
		}
		cut := size
		// Prefer breaking at the last newline inside the window.
		for i := size; i > size/2; i-- {
			if content[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, content[:cut])
		content = content[cut:]
	}
	return chunks
}

var _ SimilarityIndex = (*ChromemIndex)(nil)

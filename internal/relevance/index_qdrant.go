package relevance

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/remedyd/internal/embeddings"
	"github.com/fyrsmithlabs/remedyd/internal/logging"
)

// QdrantIndex is a SimilarityIndex backed by a remote qdrant instance,
// for daemon deployments where the index outlives the process.
type QdrantIndex struct {
	client   *qdrant.Client
	provider embeddings.Provider
	logger   *logging.Logger

	group singleflight.Group

	mu    sync.RWMutex
	built map[string]bool
}

// QdrantIndexConfig locates the remote qdrant instance.
type QdrantIndexConfig struct {
	// Host is the qdrant hostname. Default: "localhost".
	Host string

	// Port is the qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334.
	Port int
}

// NewQdrantIndex creates a remote index client.
func NewQdrantIndex(cfg QdrantIndexConfig, provider embeddings.Provider, logger *logging.Logger) (*QdrantIndex, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:   client,
		provider: provider,
		logger:   logger.Named("index.qdrant"),
		built:    make(map[string]bool),
	}, nil
}

// Search returns up to limit paths ranked by similarity to the query.
func (x *QdrantIndex) Search(ctx context.Context, root, query string, limit int) ([]string, error) {
	name := collectionName(root)

	if err := x.ensureBuilt(ctx, root, name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	vector, err := x.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	results, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit * 3)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, point := range results {
		path := point.Payload["path"].GetStringValue()
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

// Close closes the qdrant connection and the embedding provider.
func (x *QdrantIndex) Close() error {
	if err := x.client.Close(); err != nil {
		return err
	}
	return x.provider.Close()
}

func (x *QdrantIndex) ensureBuilt(ctx context.Context, root, name string) error {
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

func (x *QdrantIndex) buildCollection(ctx context.Context, root, name string) error {
	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		// Collection survives across processes; reuse it as-is.
		return nil
	}

	if err := x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.provider.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	type chunkRef struct {
		path    string
		content string
	}
	var chunks []chunkRef
	err = walkSourceFiles(ctx, root, x.logger, func(relPath, absPath string) error {
		content, ok := readTextFile(absPath)
		if !ok {
			return nil
		}
		for _, chunk := range chunkContent(content, chunkSize) {
			chunks = append(chunks, chunkRef{path: relPath, content: chunk})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.content
	}
	vectors, err := x.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: map[string]*qdrant.Value{
				"path": {Kind: &qdrant.Value_StringValue{StringValue: c.path}},
			},
		}
	}

	if _, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	x.logger.Info(ctx, "semantic index built",
		zap.String("root", root),
		zap.String("collection", name),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

var _ SimilarityIndex = (*QdrantIndex)(nil)

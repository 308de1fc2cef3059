// Package index wraps the embedded chromem vector store behind the
// similarity-search boundary the retriever depends on.
package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"rag-chat-backend/internal/config"
	"rag-chat-backend/models"

	chromem "github.com/philippgille/chromem-go"
)

// ErrDuplicateChunk is returned when a chunk with the same content hash is
// already stored. Callers treat it as a skip, not a failure.
var ErrDuplicateChunk = errors.New("duplicate chunk: content hash already stored")

// IndexError wraps vector store failures.
type IndexError struct {
	Reason string
	Err    error
}

func (e *IndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("index error: %s", e.Reason)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Searcher is the read side of the index consumed by the retriever.
type Searcher interface {
	Query(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error)
}

// Index stores (vector, text, metadata) tuples and answers cosine
// nearest-neighbor queries. The chunk ID is the content hash, which makes
// duplicate detection a plain ID lookup and survives restarts of the
// persistent store.
type Index struct {
	collection *chromem.Collection
	dimension  int

	mu sync.Mutex // serializes the check-then-insert in Upsert
}

func New(cfg *config.Config) (*Index, error) {
	db, err := chromem.NewPersistentDB(cfg.IndexPath, true)
	if err != nil {
		return nil, &IndexError{Reason: "failed to open persistent store", Err: err}
	}

	return newWithDB(db, cfg)
}

// NewInMemory builds a non-persistent index, used by tests and ephemeral
// deployments.
func NewInMemory(cfg *config.Config) (*Index, error) {
	return newWithDB(chromem.NewDB(), cfg)
}

func newWithDB(db *chromem.DB, cfg *config.Config) (*Index, error) {
	// Embeddings are always supplied by the caller, so no embedding
	// function is configured on the collection.
	collection, err := db.GetOrCreateCollection(cfg.CollectionName, nil, nil)
	if err != nil {
		return nil, &IndexError{Reason: "failed to create collection", Err: err}
	}

	return &Index{
		collection: collection,
		dimension:  cfg.EmbeddingDim,
	}, nil
}

// Upsert stores a chunk unless its content hash is already present.
func (ix *Index) Upsert(ctx context.Context, chunk models.DocumentChunk) error {
	if chunk.ContentHash == "" {
		return &IndexError{Reason: "chunk has no content hash"}
	}
	if len(chunk.Embedding) == 0 {
		return &IndexError{Reason: "chunk has no embedding"}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := ix.collection.GetByID(ctx, chunk.ContentHash); err == nil {
		return ErrDuplicateChunk
	}

	metadata := make(map[string]string, len(chunk.Metadata)+2)
	for k, v := range chunk.Metadata {
		metadata[k] = v
	}
	metadata["content_hash"] = chunk.ContentHash
	metadata["order"] = strconv.Itoa(ix.collection.Count())

	err := ix.collection.AddDocument(ctx, chromem.Document{
		ID:        chunk.ContentHash,
		Content:   chunk.Text,
		Embedding: chunk.Embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return &IndexError{Reason: "failed to store chunk", Err: err}
	}

	return nil
}

// Query returns up to limit nearest chunks by cosine similarity.
func (ix *Index) Query(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error) {
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > count {
		limit = count
	}

	hits, err := ix.collection.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, &IndexError{Reason: "similarity query failed", Err: err}
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.SearchResult{
			ChunkID:    hit.ID,
			Text:       hit.Content,
			Metadata:   hit.Metadata,
			Similarity: float64(hit.Similarity),
		})
	}

	return results, nil
}

// Contains reports whether a chunk with the given content hash is stored.
func (ix *Index) Contains(ctx context.Context, contentHash string) bool {
	_, err := ix.collection.GetByID(ctx, contentHash)
	return err == nil
}

// CollectionInfo reports the collection size and configured dimension.
func (ix *Index) CollectionInfo(ctx context.Context) (models.CollectionInfo, error) {
	return models.CollectionInfo{
		Count:     ix.collection.Count(),
		Dimension: ix.dimension,
		Status:    "green",
	}, nil
}

// models/chunk.go
package models

// DocumentChunk is a unit of ingested document text. Chunks are immutable
// once stored; ContentHash is a digest of the normalized text and guards
// against duplicate ingestion.
type DocumentChunk struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	Embedding   []float32         `json:"embedding,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ContentHash string            `json:"content_hash"`
}

// SearchResult is a per-query nearest-neighbor hit. Ephemeral, never stored.
type SearchResult struct {
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float64           `json:"similarity"`
}

// CollectionInfo describes the state of the vector collection.
type CollectionInfo struct {
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	Status    string `json:"status"`
}

type IngestRequest struct {
	Text     string            `json:"text" binding:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type IngestResponse struct {
	ChunkIDs []string `json:"chunk_ids,omitempty"`
	Skipped  int      `json:"skipped"`
	Ingested int      `json:"ingested"`
}

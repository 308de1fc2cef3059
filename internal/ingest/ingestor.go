// Package ingest turns raw document text into embedded chunks in the
// vector index, skipping content that is already stored.
package ingest

import (
	"context"

	"rag-chat-backend/internal/ai"
	"rag-chat-backend/internal/index"
	"rag-chat-backend/internal/logger"
	"rag-chat-backend/internal/telemetry"
	"rag-chat-backend/models"
	"rag-chat-backend/utils"
)

type Ingestor struct {
	embedder ai.Embedder
	index    *index.Index
	chunker  *Chunker
	metrics  *telemetry.Metrics
}

func NewIngestor(embedder ai.Embedder, ix *index.Index, chunker *Chunker, metrics *telemetry.Metrics) *Ingestor {
	return &Ingestor{
		embedder: embedder,
		index:    ix,
		chunker:  chunker,
		metrics:  metrics,
	}
}

// IngestChunk stores a single pre-chunked text. Returns the chunk ID, or
// index.ErrDuplicateChunk when the content hash is already present.
func (ing *Ingestor) IngestChunk(ctx context.Context, text string, metadata map[string]string) (string, error) {
	hash := utils.ContentHash(text)
	if ing.index.Contains(ctx, hash) {
		ing.metrics.RecordIngest(ctx, true)
		return "", index.ErrDuplicateChunk
	}

	embedding, err := ing.embedder.Embed(ctx, text)
	if err != nil {
		return "", err
	}

	err = ing.index.Upsert(ctx, models.DocumentChunk{
		ID:          hash,
		Text:        text,
		Embedding:   embedding,
		Metadata:    metadata,
		ContentHash: hash,
	})
	if err != nil {
		ing.metrics.RecordIngest(ctx, err == index.ErrDuplicateChunk)
		return "", err
	}

	ing.metrics.RecordIngest(ctx, false)
	return hash, nil
}

// Ingest chunks a document and stores every non-duplicate chunk.
func (ing *Ingestor) Ingest(ctx context.Context, text string, metadata map[string]string) (models.IngestResponse, error) {
	resp := models.IngestResponse{}

	for _, chunkText := range ing.chunker.Split(text) {
		id, err := ing.IngestChunk(ctx, chunkText, metadata)
		if err == index.ErrDuplicateChunk {
			resp.Skipped++
			continue
		}
		if err != nil {
			logger.Error("Chunk ingestion failed", "error", err)
			return resp, err
		}
		resp.ChunkIDs = append(resp.ChunkIDs, id)
		resp.Ingested++
	}

	return resp, nil
}

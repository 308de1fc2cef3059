// Package queue defines the background tasks processed by cmd/worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rag-chat-backend/internal/ingest"
	"rag-chat-backend/internal/logger"

	"github.com/hibiken/asynq"
)

const TaskIngestDocument = "document:ingest"

type IngestPayload struct {
	Source   string            `json:"source"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewIngestTask enqueues a document for chunking and embedding off the
// request path.
func NewIngestTask(source, text string, metadata map[string]string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		Source:   source,
		Text:     text,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

type TaskProcessor struct {
	ingestor *ingest.Ingestor
}

func NewTaskProcessor(ingestor *ingest.Ingestor) *TaskProcessor {
	return &TaskProcessor{ingestor: ingestor}
}

func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	metadata := payload.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	if payload.Source != "" {
		metadata["source"] = payload.Source
	}

	result, err := p.ingestor.Ingest(ctx, payload.Text, metadata)
	if err != nil {
		return err // embedding/index failures will retry
	}

	logger.Info("Document ingested",
		"source", payload.Source,
		"ingested", result.Ingested,
		"skipped", result.Skipped)
	return nil
}

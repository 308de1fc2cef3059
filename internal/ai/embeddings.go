package ai

import (
	"context"

	"rag-chat-backend/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder produces embeddings via Google Generative AI
// (text-embedding-004 by default).
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, &EmbeddingError{Reason: "client init failed", Err: err}
	}

	return &GeminiEmbedder{
		client: client,
		model:  cfg.EmbeddingModel,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.client.EmbeddingModel(e.model)

	var values []float32
	err := withRetry(ctx, func() error {
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return &EmbeddingError{Reason: "no embedding returned"}
		}
		values = resp.Embedding.Values
		return nil
	}, isTransient)

	if err != nil {
		var embErr *EmbeddingError
		if e, ok := err.(*EmbeddingError); ok {
			embErr = e
		} else {
			embErr = &EmbeddingError{Reason: "embed content failed", Err: err}
		}
		return nil, embErr
	}

	return values, nil
}

func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

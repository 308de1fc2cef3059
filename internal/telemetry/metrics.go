package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	ChatRequests    metric.Int64Counter
	CacheHits       metric.Int64Counter
	Fallbacks       metric.Int64Counter
	Confidence      metric.Float64Histogram
	RequestDuration metric.Float64Histogram
	ChunksIngested  metric.Int64Counter
	DuplicateChunks metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("rag-chat-backend")

	chatRequests, err := meter.Int64Counter(
		"chat.requests.total",
		metric.WithDescription("Total chat messages handled"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"chat.cache.hits",
		metric.WithDescription("Chat responses served from the response cache"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"chat.fallbacks.total",
		metric.WithDescription("Chat responses degraded to the fallback answer"),
	)
	if err != nil {
		return nil, err
	}

	confidence, err := meter.Float64Histogram(
		"chat.confidence",
		metric.WithDescription("Confidence score distribution"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter(
		"ingest.chunks.total",
		metric.WithDescription("Document chunks stored in the vector index"),
	)
	if err != nil {
		return nil, err
	}

	duplicateChunks, err := meter.Int64Counter(
		"ingest.duplicates.total",
		metric.WithDescription("Document chunks skipped as duplicates"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ChatRequests:    chatRequests,
		CacheHits:       cacheHits,
		Fallbacks:       fallbacks,
		Confidence:      confidence,
		RequestDuration: requestDuration,
		ChunksIngested:  chunksIngested,
		DuplicateChunks: duplicateChunks,
	}, nil
}

// RecordChat records the outcome of one handled chat message. Safe to call
// on a nil receiver so tests can run without a meter provider.
func (m *Metrics) RecordChat(ctx context.Context, cached, fallback, contextUsed bool, confidence float64) {
	if m == nil {
		return
	}
	m.ChatRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("chat.cached", cached),
		attribute.Bool("chat.context_used", contextUsed),
	))
	if cached {
		m.CacheHits.Add(ctx, 1)
	}
	if fallback {
		m.Fallbacks.Add(ctx, 1)
	}
	m.Confidence.Record(ctx, confidence)
}

// RecordIngest records the outcome of a chunk upsert.
func (m *Metrics) RecordIngest(ctx context.Context, duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.DuplicateChunks.Add(ctx, 1)
		return
	}
	m.ChunksIngested.Add(ctx, 1)
}

// RecordRequest records an HTTP request duration for the metrics middleware.
func (m *Metrics) RecordRequest(ctx context.Context, method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("http.status", status),
	))
}

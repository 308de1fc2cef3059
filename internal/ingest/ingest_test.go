package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-chat-backend/internal/config"
	"rag-chat-backend/internal/index"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	// Cheap deterministic vector derived from the text length
	return []float32{float32(len(text)), 1, 0}, nil
}

func testIngestor(t *testing.T) (*Ingestor, *index.Index, *fakeEmbedder) {
	t.Helper()
	ix, err := index.NewInMemory(&config.Config{
		CollectionName: "test_chunks",
		EmbeddingDim:   3,
	})
	if err != nil {
		t.Fatalf("index.NewInMemory: %v", err)
	}
	emb := &fakeEmbedder{}
	ing := NewIngestor(emb, ix, NewChunker(1000, 200, 100), nil)
	return ing, ix, emb
}

func TestIngestChunkStoresAndDedupes(t *testing.T) {
	ing, ix, emb := testIngestor(t)
	ctx := context.Background()

	id, err := ing.IngestChunk(ctx, "The widget weighs 2kg.", map[string]string{"product": "widget"})
	if err != nil {
		t.Fatalf("IngestChunk: %v", err)
	}
	if id == "" {
		t.Fatal("empty chunk ID")
	}
	if !ix.Contains(ctx, id) {
		t.Fatal("chunk not stored under its ID")
	}

	// Same content, different surface form: normalization makes it a dup
	_, err = ing.IngestChunk(ctx, "  THE   widget weighs 2kg.  ", nil)
	if err != index.ErrDuplicateChunk {
		t.Fatalf("near-identical chunk: got %v want ErrDuplicateChunk", err)
	}
	// The duplicate must be caught before the embedding call
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want 1", emb.calls)
	}
}

func TestIngestCountsSkipsAndIDs(t *testing.T) {
	ing, _, _ := testIngestor(t)
	ctx := context.Background()

	doc := "First paragraph about the widget.\n\nSecond paragraph about the gadget."
	resp, err := ing.Ingest(ctx, doc, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Ingested == 0 {
		t.Fatal("nothing ingested")
	}
	if len(resp.ChunkIDs) != resp.Ingested {
		t.Errorf("chunk IDs %d != ingested %d", len(resp.ChunkIDs), resp.Ingested)
	}

	// Re-ingesting the same document skips everything
	again, err := ing.Ingest(ctx, doc, nil)
	if err != nil {
		t.Fatalf("re-Ingest: %v", err)
	}
	if again.Ingested != 0 {
		t.Errorf("re-ingest stored %d chunks", again.Ingested)
	}
	if again.Skipped != resp.Ingested {
		t.Errorf("skipped %d, want %d", again.Skipped, resp.Ingested)
	}
}

func TestIngestEmbeddingFailureAborts(t *testing.T) {
	ing, _, emb := testIngestor(t)
	emb.err = errors.New("provider down")

	resp, err := ing.Ingest(context.Background(), "Some document text here.", nil)
	if err == nil {
		t.Fatal("expected error from embedding failure")
	}
	if resp.Ingested != 0 {
		t.Errorf("partial count wrong: %d", resp.Ingested)
	}
}

func TestChunkerSplitsOnParagraphs(t *testing.T) {
	c := NewChunker(100, 0, 10)

	para := strings.Repeat("word ", 15) // ~75 chars
	text := para + "\n\n" + para + "\n\n" + para

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100+75 {
			t.Errorf("chunk %d far exceeds max size: %d chars", i, len(chunk))
		}
	}
}

func TestChunkerOverlap(t *testing.T) {
	c := NewChunker(100, 30, 10)

	para := strings.Repeat("alpha beta ", 8) // ~88 chars
	text := para + "\n\n" + para

	chunks := c.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// The second chunk starts with the tail of the first
	head := strings.SplitN(chunks[1], "\n\n", 2)[0]
	if !strings.HasSuffix(strings.TrimSpace(chunks[0]), strings.TrimSpace(head)) {
		t.Errorf("no overlap carried: first ends %q, second starts %q",
			tailText(chunks[0], 40), head)
	}
}

func TestChunkerLongParagraph(t *testing.T) {
	c := NewChunker(100, 0, 10)

	// One paragraph, many sentences, no double newlines
	text := strings.Repeat("This is a sentence about the widget. ", 12)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("long paragraph not split: %d chunks", len(chunks))
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(100, 0, 10)

	if chunks := c.Split(""); len(chunks) != 0 {
		t.Errorf("empty input produced %d chunks", len(chunks))
	}
	if chunks := c.Split("\n\n\n\n"); len(chunks) != 0 {
		t.Errorf("whitespace input produced %d chunks", len(chunks))
	}
}

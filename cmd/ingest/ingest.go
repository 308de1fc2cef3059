// Command ingest loads a directory of documents into the vector index.
// It is meant for seeding the knowledge base before the server starts;
// runtime ingestion goes through the HTTP API or the worker queue.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rag-chat-backend/internal/ai"
	"rag-chat-backend/internal/config"
	"rag-chat-backend/internal/index"
	"rag-chat-backend/internal/ingest"
	"rag-chat-backend/internal/logger"

	"github.com/ledongthuc/pdf"
)

func main() {
	dir := flag.String("dir", "./documents", "directory of .txt, .md and .pdf files to ingest")
	product := flag.String("product", "", "product name stamped on every chunk")
	docType := flag.String("doc-type", "", "document type stamped on every chunk (e.g. technical_specification)")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline for the run")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	embedder, err := ai.NewGeminiEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to init embedder:", err)
	}
	defer embedder.Close()

	ix, err := index.New(cfg)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}

	chunker := ingest.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	ingestor := ingest.NewIngestor(embedder, ix, chunker, nil)

	var files []string
	err = filepath.WalkDir(*dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".pdf":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Fatal("Failed to scan directory:", err)
	}
	if len(files) == 0 {
		log.Fatalf("No ingestable files under %s", *dir)
	}

	var totalIngested, totalSkipped, failures int
	for _, path := range files {
		text, err := readDocument(path)
		if err != nil {
			logger.Error("Skipping unreadable document", "path", path, "error", err)
			failures++
			continue
		}

		metadata := map[string]string{"source": filepath.Base(path)}
		if *product != "" {
			metadata["product"] = *product
		}
		if *docType != "" {
			metadata["doc_type"] = *docType
		}

		result, err := ingestor.Ingest(ctx, text, metadata)
		totalIngested += result.Ingested
		totalSkipped += result.Skipped
		if err != nil {
			logger.Error("Ingestion aborted for document", "path", path, "error", err)
			failures++
			continue
		}

		logger.Info("Document ingested",
			"path", path,
			"ingested", result.Ingested,
			"skipped", result.Skipped)
	}

	info, err := ix.CollectionInfo(ctx)
	if err != nil {
		logger.Warn("Failed to read collection info", "error", err)
	}
	logger.Info("Ingestion run complete",
		"files", len(files),
		"failures", failures,
		"chunks_ingested", totalIngested,
		"chunks_skipped", totalSkipped,
		"collection_size", info.Count)

	if failures > 0 {
		os.Exit(1)
	}
}

func readDocument(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDFText(content)
	}
	return string(content), nil
}

// extractPDFText pulls plain text out of a PDF page by page. Pages that
// fail to decode are skipped rather than failing the whole document.
func extractPDFText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	if textBuilder.Len() == 0 {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return textBuilder.String(), nil
}

package ingest

import (
	"regexp"
	"strings"
)

// Chunker splits document text into overlapping chunks along paragraph
// and sentence boundaries.
type Chunker struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

func NewChunker(maxChunkSize, overlap, minChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if minChunkSize <= 0 || minChunkSize > maxChunkSize {
		minChunkSize = maxChunkSize / 10
	}
	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Split chunks text with paragraph awareness and a character overlap
// between consecutive chunks.
func (c *Chunker) Split(text string) []string {
	paragraphs := filterEmpty(c.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	current := new(strings.Builder)
	currentSize := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		// Paragraphs larger than a chunk get split on sentences first
		for _, piece := range c.splitLongParagraph(paragraph) {
			pieceSize := len(piece)

			if currentSize+pieceSize > c.maxChunkSize && currentSize >= c.minChunkSize {
				chunks = append(chunks, current.String())

				current = new(strings.Builder)
				currentSize = 0
				if c.overlap > 0 && len(chunks) > 0 {
					overlapText := tailText(chunks[len(chunks)-1], c.overlap)
					if overlapText != "" {
						current.WriteString(overlapText)
						currentSize = len(overlapText)
					}
				}
			}

			if current.Len() > 0 {
				current.WriteString("\n\n")
				currentSize += 2
			}
			current.WriteString(piece)
			currentSize += pieceSize
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func (c *Chunker) splitLongParagraph(paragraph string) []string {
	if len(paragraph) <= c.maxChunkSize {
		return []string{paragraph}
	}

	sentences := c.sentenceRegex.Split(paragraph, -1)
	var pieces []string
	current := new(strings.Builder)

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(sentence) > c.maxChunkSize {
			pieces = append(pieces, current.String())
			current = new(strings.Builder)
		}
		if current.Len() > 0 {
			current.WriteString(". ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	return pieces
}

// tailText returns the last overlap characters, cut back to a word
// boundary.
func tailText(text string, overlap int) string {
	if len(text) <= overlap {
		return text
	}
	tail := text[len(text)-overlap:]
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}

func filterEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package retrieval assembles grounding context for a chat message:
// multi-strategy similarity search, result diversification and priority
// scoring, truncated to a token budget.
package retrieval

import (
	"context"

	"rag-chat-backend/internal/ai"
	"rag-chat-backend/internal/index"
	"rag-chat-backend/internal/logger"
	"rag-chat-backend/models"
)

// Stats summarizes what the retriever selected; the orchestrator folds it
// into the confidence score.
type Stats struct {
	Candidates    int
	TopSimilarity float64
	Groups        int
}

type Retriever struct {
	embedder ai.Embedder
	searcher index.Searcher
	topN     int
}

func New(embedder ai.Embedder, searcher index.Searcher, topN int) *Retriever {
	if topN <= 0 {
		topN = 8
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		topN:     topN,
	}
}

// Retrieve returns the concatenated context for the query, bounded by
// tokenBudget, and whether any context was selected. An embedding failure
// on the primary query propagates; the caller degrades to a context-free
// answer. Expansion queries fail soft.
func (r *Retriever) Retrieve(ctx context.Context, query string, tokenBudget int) (string, bool, Stats, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", false, Stats{}, err
	}

	primary, err := r.searcher.Query(ctx, vec, r.topN)
	if err != nil {
		return "", false, Stats{}, err
	}

	sets := [][]models.SearchResult{primary}
	for _, expanded := range ExpandQuery(query) {
		evec, err := r.embedder.Embed(ctx, expanded)
		if err != nil {
			logger.Warn("Expansion embedding failed, skipping variant", "error", err)
			continue
		}
		hits, err := r.searcher.Query(ctx, evec, r.topN)
		if err != nil {
			logger.Warn("Expansion search failed, skipping variant", "error", err)
			continue
		}
		sets = append(sets, hits)
	}

	merged := mergeResults(sets...)
	if len(merged) == 0 {
		return "", false, Stats{}, nil
	}

	ordered := diversify(rank(merged, query))
	included, contextText := truncateToBudget(ordered, tokenBudget)
	if len(included) == 0 {
		return "", false, Stats{}, nil
	}

	return contextText, true, summarize(included), nil
}

func summarize(included []candidate) Stats {
	stats := Stats{Candidates: len(included)}
	groups := make(map[string]bool)
	for _, c := range included {
		groups[groupKey(c)] = true
		if c.Similarity > stats.TopSimilarity {
			stats.TopSimilarity = c.Similarity
		}
	}
	stats.Groups = len(groups)
	return stats
}

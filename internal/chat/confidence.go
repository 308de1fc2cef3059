package chat

import (
	"strings"

	"rag-chat-backend/internal/retrieval"
)

const (
	noContextBaseline = 0.35
	contextBaseline   = 0.6
	similarityWeight  = 0.2
	countWeight       = 0.1
	contextCeiling    = 0.9
	markerPenalty     = 0.05

	// Answers below this confidence are flagged for human follow-up.
	needsHumanThreshold = 0.4
)

var uncertaintyMarkers = []string{
	"i'm not sure",
	"might be",
	"possibly",
	"perhaps",
	"could be",
	"uncertain",
	"unclear",
	"don't know",
	"not confident",
}

// ConfidenceScore estimates answer confidence. With context the score
// grows with the number of included chunks and the best raw similarity,
// capped at 0.9; without context it starts at 0.35. Hedging language in
// the answer shaves a little off. The result is always within [0, 1] and
// never decreases when more or better context is available.
func ConfidenceScore(used bool, stats retrieval.Stats, answer string) float64 {
	score := noContextBaseline
	if used {
		topSim := clamp(stats.TopSimilarity, 0, 1)
		count := stats.Candidates
		if count > 5 {
			count = 5
		}
		score = contextBaseline + similarityWeight*topSim + countWeight*float64(count)/5
		if score > contextCeiling {
			score = contextCeiling
		}
	}

	answerLower := strings.ToLower(answer)
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(answerLower, marker) {
			score -= markerPenalty
		}
	}

	// Hedging can drag a score down but never below the context-free
	// baseline; the hard zero is reserved for the fallback path.
	return clamp(score, noContextBaseline, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

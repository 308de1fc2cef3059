package retrieval

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rag-chat-backend/models"
)

const (
	productBoost  = 1.5
	techBoost     = 1.3
	overviewBoost = 1.2

	// Groups guaranteed representation in the final ranking when the
	// index holds chunks from that many distinct products.
	diversityTarget = 3
)

var (
	techQueryPattern     = regexp.MustCompile(`(?i)\b(spec|specs|specification|specifications|technical|dimensions|capacity|voltage|wattage|weight|battery|performance)\b`)
	overviewQueryPattern = regexp.MustCompile(`(?i)\b(overview|tell me about|what is|what are|introduce|describe)\b`)
)

// candidate is a search result annotated with ranking state.
type candidate struct {
	models.SearchResult
	boosted   float64
	insertPos int
}

// synonymTable drives deterministic query expansion.
var synonymTable = map[string]string{
	"price":    "cost",
	"buy":      "purchase",
	"specs":    "specifications",
	"spec":     "specification",
	"info":     "information",
	"features": "capabilities",
	"cheap":    "affordable",
}

// ExpandQuery derives one or two paraphrased queries from the original.
// Expansion is rule-based and fully deterministic: a synonym-substituted
// variant when any word has a known synonym, plus a qualifier-extended
// variant.
func ExpandQuery(query string) []string {
	words := strings.Fields(query)
	substituted := make([]string, len(words))
	changed := false
	for i, w := range words {
		key := strings.ToLower(strings.Trim(w, ".,!?"))
		if syn, ok := synonymTable[key]; ok {
			substituted[i] = syn
			changed = true
		} else {
			substituted[i] = w
		}
	}

	var expansions []string
	if changed {
		expansions = append(expansions, strings.Join(substituted, " "))
	}
	expansions = append(expansions, query+" key details")
	return expansions
}

// mergeResults merges result sets by chunk ID, keeping the highest
// similarity seen for each chunk. First-seen order is preserved so the
// later stable sort has a deterministic base.
func mergeResults(sets ...[]models.SearchResult) []candidate {
	merged := make([]candidate, 0)
	byID := make(map[string]int)

	for _, set := range sets {
		for _, r := range set {
			if pos, ok := byID[r.ChunkID]; ok {
				if r.Similarity > merged[pos].Similarity {
					merged[pos].Similarity = r.Similarity
				}
				continue
			}
			byID[r.ChunkID] = len(merged)
			merged = append(merged, candidate{SearchResult: r, insertPos: insertionOrder(r)})
		}
	}

	return merged
}

// insertionOrder reads the index-assigned insertion counter, falling back
// to a large value for chunks without one.
func insertionOrder(r models.SearchResult) int {
	if s, ok := r.Metadata["order"]; ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 1 << 30
}

// boostScore applies the priority multipliers for a single candidate.
func boostScore(c candidate, query string) float64 {
	score := c.Similarity
	queryLower := strings.ToLower(query)
	queryTokens := tokenSet(queryLower)

	if product := strings.ToLower(c.Metadata["product"]); product != "" {
		if matchesTokens(product, queryTokens) {
			score *= productBoost
		}
	}

	if techQueryPattern.MatchString(query) && isSpecLike(c) {
		score *= techBoost
	}

	if overviewQueryPattern.MatchString(queryLower) && isOverviewLike(c) {
		score *= overviewBoost
	}

	return score
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[strings.Trim(tok, ".,!?")] = true
	}
	return set
}

// matchesTokens reports whether every token of the product name occurs in
// the query token set. Exact token match, not substring.
func matchesTokens(product string, queryTokens map[string]bool) bool {
	parts := strings.Fields(product)
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !queryTokens[p] {
			return false
		}
	}
	return true
}

func isSpecLike(c candidate) bool {
	if strings.EqualFold(c.Metadata["section"], "specifications") {
		return true
	}
	return techQueryPattern.MatchString(c.Text)
}

func isOverviewLike(c candidate) bool {
	section := strings.ToLower(c.Metadata["section"])
	return section == "overview" || section == "introduction"
}

// rank orders candidates by boosted score descending; ties break by raw
// similarity, then by chunk insertion order, then by ID so repeated runs
// agree bit for bit.
func rank(candidates []candidate, query string) []candidate {
	for i := range candidates {
		candidates[i].boosted = boostScore(candidates[i], query)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.boosted != b.boosted {
			return a.boosted > b.boosted
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.insertPos != b.insertPos {
			return a.insertPos < b.insertPos
		}
		return a.ChunkID < b.ChunkID
	})

	return candidates
}

// diversify reorders a ranked list so the best result of each of the
// leading min(distinct, diversityTarget) product groups sits at the front.
// Budget truncation then keeps at least that many groups whenever it keeps
// that many chunks.
func diversify(ranked []candidate) []candidate {
	groupBest := make(map[string]int)
	groupOrder := make([]string, 0)
	for i, c := range ranked {
		g := groupKey(c)
		if _, ok := groupBest[g]; !ok {
			groupBest[g] = i
			groupOrder = append(groupOrder, g)
		}
	}

	target := diversityTarget
	if len(groupOrder) < target {
		target = len(groupOrder)
	}
	if target <= 1 {
		return ranked
	}

	promoted := make(map[int]bool, target)
	for _, g := range groupOrder[:target] {
		promoted[groupBest[g]] = true
	}

	out := make([]candidate, 0, len(ranked))
	for i, c := range ranked {
		if promoted[i] {
			out = append(out, c)
		}
	}
	for i, c := range ranked {
		if !promoted[i] {
			out = append(out, c)
		}
	}

	return out
}

func groupKey(c candidate) string {
	if p := c.Metadata["product"]; p != "" {
		return strings.ToLower(p)
	}
	return "general"
}

// EstimateTokens approximates the token count of text from its word count
// (roughly 0.75 words per token).
func EstimateTokens(text string) int {
	return tokensForWords(len(strings.Fields(text)))
}

func tokensForWords(words int) int {
	return int(float64(words) / 0.75)
}

// maxWordsWithin is the largest word count whose token estimate still
// fits the budget.
func maxWordsWithin(budget int) int {
	words := int(float64(budget) * 0.75)
	for words > 0 && tokensForWords(words) > budget {
		words--
	}
	return words
}

// truncateToBudget accumulates chunk texts in order while the token
// estimate of the whole concatenation stays within the budget. The word
// count runs across chunks: summing per-chunk estimates would let the
// truncation in each int() hide up to a token per chunk. The last chunk
// is cut at a word boundary rather than dropped when only part of it
// fits.
func truncateToBudget(ordered []candidate, budget int) ([]candidate, string) {
	if budget <= 0 {
		return nil, ""
	}

	var included []candidate
	var parts []string
	words := 0

	for _, c := range ordered {
		chunkWords := strings.Fields(c.Text)
		if tokensForWords(words+len(chunkWords)) <= budget {
			included = append(included, c)
			parts = append(parts, c.Text)
			words += len(chunkWords)
			continue
		}

		allowed := maxWordsWithin(budget) - words
		if allowed > 0 {
			included = append(included, c)
			parts = append(parts, strings.Join(chunkWords[:allowed], " "))
		}
		break
	}

	return included, strings.Join(parts, "\n\n")
}

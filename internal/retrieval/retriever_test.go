package retrieval

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"rag-chat-backend/models"
)

// fakeEmbedder returns a fixed vector, optionally failing on specific
// inputs to simulate provider errors.
type fakeEmbedder struct {
	failOn map[string]bool
	calls  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.failOn[text] {
		return nil, errors.New("embedding unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeSearcher returns a canned result set regardless of the vector.
type fakeSearcher struct {
	results []models.SearchResult
	err     error
	queries int
}

func (f *fakeSearcher) Query(_ context.Context, _ []float32, _ int) ([]models.SearchResult, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func result(id, text, product, section string, sim float64) models.SearchResult {
	return models.SearchResult{
		ChunkID:    id,
		Text:       text,
		Similarity: sim,
		Metadata: map[string]string{
			"product": product,
			"section": section,
		},
	}
}

func TestExpandQuerySynonyms(t *testing.T) {
	expansions := ExpandQuery("what is the price of the router")

	if len(expansions) != 2 {
		t.Fatalf("expected 2 expansions, got %d: %v", len(expansions), expansions)
	}
	if expansions[0] != "what is the cost of the router" {
		t.Errorf("synonym variant wrong: %q", expansions[0])
	}
	if expansions[1] != "what is the price of the router key details" {
		t.Errorf("qualifier variant wrong: %q", expansions[1])
	}
}

func TestExpandQueryNoSynonyms(t *testing.T) {
	expansions := ExpandQuery("how do I reset the device")

	if len(expansions) != 1 {
		t.Fatalf("expected 1 expansion, got %d: %v", len(expansions), expansions)
	}
	if !strings.HasSuffix(expansions[0], " key details") {
		t.Errorf("qualifier variant wrong: %q", expansions[0])
	}
}

func TestExpandQueryDeterministic(t *testing.T) {
	first := ExpandQuery("router specs and price")
	for i := 0; i < 10; i++ {
		if got := ExpandQuery("router specs and price"); !reflect.DeepEqual(got, first) {
			t.Fatalf("expansion not deterministic: %v vs %v", got, first)
		}
	}
}

func TestMergeKeepsMaxSimilarity(t *testing.T) {
	a := []models.SearchResult{result("c1", "alpha", "", "", 0.5)}
	b := []models.SearchResult{
		result("c1", "alpha", "", "", 0.8),
		result("c2", "beta", "", "", 0.4),
	}

	merged := mergeResults(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(merged))
	}
	if merged[0].ChunkID != "c1" || merged[0].Similarity != 0.8 {
		t.Errorf("duplicate not merged to max similarity: %+v", merged[0])
	}
}

func TestProductBoostReorders(t *testing.T) {
	candidates := mergeResults([]models.SearchResult{
		result("c1", "general networking overview", "", "", 0.7),
		result("c2", "the widget supports dual band", "widget", "", 0.6),
	})

	ranked := rank(candidates, "does the widget support dual band")
	if ranked[0].ChunkID != "c2" {
		t.Fatalf("product match not boosted above higher raw similarity: top is %s", ranked[0].ChunkID)
	}
	// 0.6 * 1.5 = 0.9
	if ranked[0].boosted < 0.89 || ranked[0].boosted > 0.91 {
		t.Errorf("boosted score: got %f want 0.9", ranked[0].boosted)
	}
}

func TestProductBoostRequiresExactTokens(t *testing.T) {
	candidates := mergeResults([]models.SearchResult{
		result("c1", "text", "widget pro", "", 0.5),
	})

	ranked := rank(candidates, "tell me about the widget")
	if ranked[0].boosted != 0.5 {
		t.Errorf("partial product name boosted: got %f want 0.5", ranked[0].boosted)
	}
}

func TestTechBoostNeedsTechQueryAndSpecChunk(t *testing.T) {
	spec := mergeResults([]models.SearchResult{
		result("c1", "weight and dimensions table", "", "specifications", 0.5),
	})
	plain := mergeResults([]models.SearchResult{
		result("c2", "shipping policy", "", "faq", 0.5),
	})

	if got := rank(spec, "what are the specs")[0].boosted; got < 0.64 || got > 0.66 {
		t.Errorf("spec chunk on tech query: got %f want 0.65", got)
	}
	if got := rank(plain, "what are the specs")[0].boosted; got != 0.5 {
		t.Errorf("non-spec chunk boosted on tech query: got %f", got)
	}
	if got := rank(spec, "where is my order")[0].boosted; got != 0.5 {
		t.Errorf("spec chunk boosted on non-tech query: got %f", got)
	}
}

func TestRankDeterministicOnTies(t *testing.T) {
	build := func() []candidate {
		return mergeResults([]models.SearchResult{
			result("cb", "same", "", "", 0.5),
			result("ca", "same", "", "", 0.5),
			result("cc", "same", "", "", 0.5),
		})
	}

	first := rank(build(), "same")
	for i := 0; i < 5; i++ {
		again := rank(build(), "same")
		for j := range first {
			if again[j].ChunkID != first[j].ChunkID {
				t.Fatalf("tie order unstable at %d: %s vs %s", j, again[j].ChunkID, first[j].ChunkID)
			}
		}
	}
	// All ranking keys equal, so IDs decide
	if first[0].ChunkID != "ca" || first[1].ChunkID != "cb" || first[2].ChunkID != "cc" {
		t.Errorf("tie-break order: %s %s %s", first[0].ChunkID, first[1].ChunkID, first[2].ChunkID)
	}
}

func TestDiversifyPromotesThreeGroups(t *testing.T) {
	ranked := rank(mergeResults([]models.SearchResult{
		result("a1", "alpha one", "alpha", "", 0.9),
		result("a2", "alpha two", "alpha", "", 0.8),
		result("b1", "beta one", "beta", "", 0.7),
		result("a3", "alpha three", "alpha", "", 0.6),
		result("g1", "gamma one", "gamma", "", 0.5),
	}), "query")

	out := diversify(ranked)
	front := map[string]bool{
		groupKey(out[0]): true,
		groupKey(out[1]): true,
		groupKey(out[2]): true,
	}
	if len(front) != 3 {
		t.Fatalf("first three entries cover %d groups, want 3: %v", len(front), front)
	}
	if out[0].ChunkID != "a1" {
		t.Errorf("best overall displaced from front: %s", out[0].ChunkID)
	}
	if len(out) != len(ranked) {
		t.Errorf("diversify changed list length: %d vs %d", len(out), len(ranked))
	}
}

func TestDiversifySingleGroupUnchanged(t *testing.T) {
	ranked := rank(mergeResults([]models.SearchResult{
		result("a1", "one", "alpha", "", 0.9),
		result("a2", "two", "alpha", "", 0.8),
	}), "query")

	out := diversify(ranked)
	if out[0].ChunkID != "a1" || out[1].ChunkID != "a2" {
		t.Errorf("single-group order changed: %s %s", out[0].ChunkID, out[1].ChunkID)
	}
}

func TestTruncateToBudgetNeverExceeds(t *testing.T) {
	long := strings.Repeat("word ", 300)
	ordered := mergeResults([]models.SearchResult{
		result("c1", long, "", "", 0.9),
		result("c2", long, "", "", 0.8),
		result("c3", long, "", "", 0.7),
	})

	const budget = 500
	_, text := truncateToBudget(ordered, budget)
	if got := EstimateTokens(text); got > budget {
		t.Fatalf("context estimate %d exceeds budget %d", got, budget)
	}
	if text == "" {
		t.Fatal("budget large enough for partial content but context empty")
	}
}

func TestTruncateToBudgetSmallChunks(t *testing.T) {
	// Per-chunk estimates round down individually (2 words -> 2 tokens),
	// so many small chunks are where the concatenated estimate can creep
	// past the budget.
	ordered := mergeResults([]models.SearchResult{
		result("c1", "alpha beta", "", "", 0.9),
		result("c2", "gamma delta", "", "", 0.8),
		result("c3", "epsilon zeta", "", "", 0.7),
	})

	for budget := 1; budget <= 10; budget++ {
		_, text := truncateToBudget(ordered, budget)
		if got := EstimateTokens(text); got > budget {
			t.Errorf("budget %d: context estimate %d exceeds it (text=%q)", budget, got, text)
		}
	}

	// Budget 4 fits three words: one full chunk plus one word of the next
	_, text := truncateToBudget(ordered, 4)
	if text != "alpha beta\n\ngamma" {
		t.Errorf("partial cut: got %q", text)
	}
}

func TestTruncateZeroBudget(t *testing.T) {
	ordered := mergeResults([]models.SearchResult{
		result("c1", "some text", "", "", 0.9),
	})

	included, text := truncateToBudget(ordered, 0)
	if len(included) != 0 || text != "" {
		t.Fatalf("zero budget returned content: %q", text)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := New(&fakeEmbedder{}, &fakeSearcher{}, 8)

	text, used, stats, err := r.Retrieve(context.Background(), "anything", 1000)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if used || text != "" {
		t.Errorf("empty index produced context: used=%v text=%q", used, text)
	}
	if stats.Candidates != 0 {
		t.Errorf("stats from empty index: %+v", stats)
	}
}

func TestRetrievePrimaryEmbedFailurePropagates(t *testing.T) {
	emb := &fakeEmbedder{failOn: map[string]bool{"the question": true}}
	r := New(emb, &fakeSearcher{}, 8)

	_, _, _, err := r.Retrieve(context.Background(), "the question", 1000)
	if err == nil {
		t.Fatal("expected error from primary embedding failure")
	}
}

func TestRetrieveExpansionFailureIsSoft(t *testing.T) {
	emb := &fakeEmbedder{failOn: map[string]bool{"the question key details": true}}
	searcher := &fakeSearcher{results: []models.SearchResult{
		result("c1", "relevant text", "", "", 0.9),
	}}
	r := New(emb, searcher, 8)

	text, used, stats, err := r.Retrieve(context.Background(), "the question", 1000)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !used || text == "" {
		t.Fatal("primary results dropped because an expansion failed")
	}
	if stats.TopSimilarity != 0.9 {
		t.Errorf("top similarity: got %f want 0.9", stats.TopSimilarity)
	}
}

func TestRetrieveRunsExpansionQueries(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		result("c1", "text", "", "", 0.5),
	}}
	r := New(&fakeEmbedder{}, searcher, 8)

	_, _, _, err := r.Retrieve(context.Background(), "price of widget", 1000)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// Primary plus synonym variant plus qualifier variant
	if searcher.queries != 3 {
		t.Errorf("search count: got %d want 3", searcher.queries)
	}
}

func TestEstimateTokens(t *testing.T) {
	// 6 words / 0.75 = 8 tokens
	if got := EstimateTokens("one two three four five six"); got != 8 {
		t.Errorf("EstimateTokens: got %d want 8", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens empty: got %d want 0", got)
	}
}

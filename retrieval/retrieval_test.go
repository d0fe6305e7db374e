package retrieval

import (
	"context"
	"testing"

	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
	"github.com/ragdata-go/ragdata/vectorstore/memory"
)

func seedStore(t *testing.T, docs ...vectorstore.Chunk) *memory.Store {
	t.Helper()
	s := memory.New()
	if _, err := s.AddDocuments(context.Background(), docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	return s
}

func chunk(id string, embedding []float32, content string, metadata map[string]any) vectorstore.Chunk {
	return vectorstore.Chunk{ID: id, Content: content, Embedding: embedding, Metadata: metadata}
}

func TestBasicSimilarityOrdersByScore(t *testing.T) {
	s := seedStore(t,
		chunk("a", []float32{1, 0}, "alpha", nil),
		chunk("b", []float32{0, 1}, "beta", nil),
	)
	result, err := (BasicSimilarity{}).Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("got %d documents, want 2", len(result.Documents))
	}
	if result.Documents[0].ID != "a" {
		t.Errorf("top result = %s, want a", result.Documents[0].ID)
	}
	for i := 1; i < len(result.Scores); i++ {
		if result.Scores[i] > result.Scores[i-1] {
			t.Errorf("scores not descending: %v", result.Scores)
		}
	}
	if result.StrategyMetadata["strategy"] != "basic_similarity" {
		t.Errorf("strategy metadata = %v", result.StrategyMetadata["strategy"])
	}
}

func TestMetadataFilteredRequiresFilter(t *testing.T) {
	s := seedStore(t, chunk("a", []float32{1, 0}, "alpha", map[string]any{"topic": "x"}))
	_, err := (MetadataFiltered{}).Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5,
	})
	if ragerrors.KindOf(err) != ragerrors.KindInvalidArgument {
		t.Fatalf("KindOf(err) = %v, want KindInvalidArgument", ragerrors.KindOf(err))
	}

	result, err := (MetadataFiltered{}).Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5,
		MetadataFilter: vectorstore.MetadataFilter{"topic": "x"},
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(result.Documents))
	}
}

type fakeReranker struct {
	order []int
	err   error
}

func (f fakeReranker) Rerank(_ context.Context, _ string, documents []string) ([]RerankResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]RerankResult, len(f.order))
	for pos, idx := range f.order {
		out[pos] = RerankResult{Index: idx, Score: 1.0 - float64(pos)*0.1}
	}
	return out, nil
}

func TestCrossEncoderRerankedRequiresQueryText(t *testing.T) {
	s := seedStore(t, chunk("a", []float32{1, 0}, "alpha", nil))
	strategy := CrossEncoderReranked{Reranker: fakeReranker{order: []int{0}}}
	_, err := strategy.Retrieve(context.Background(), Request{QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5})
	if ragerrors.KindOf(err) != ragerrors.KindInvalidArgument {
		t.Fatalf("KindOf(err) = %v, want KindInvalidArgument", ragerrors.KindOf(err))
	}
}

func TestCrossEncoderRerankedReordersCandidates(t *testing.T) {
	s := seedStore(t,
		chunk("a", []float32{1, 0}, "alpha", nil),
		chunk("b", []float32{0.9, 0.1}, "beta", nil),
	)
	// The reranker flips the similarity order: beta (index 1) first.
	strategy := CrossEncoderReranked{Reranker: fakeReranker{order: []int{1, 0}}, InitialK: 5, FinalTopK: 2}
	result, err := strategy.Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5, QueryText: "find alpha",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Documents) != 2 || result.Documents[0].ID != "b" {
		t.Fatalf("reranked order = %+v, want [b, a]", result.Documents)
	}
	if _, ok := result.Documents[0].Metadata["reranker_score"]; !ok {
		t.Error("missing reranker_score metadata")
	}
}

func TestCrossEncoderRerankedFallsBackOnRerankerError(t *testing.T) {
	s := seedStore(t, chunk("a", []float32{1, 0}, "alpha", nil))
	strategy := CrossEncoderReranked{Reranker: fakeReranker{err: context.DeadlineExceeded}}
	result, err := strategy.Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5, QueryText: "find alpha",
	})
	if err != nil {
		t.Fatalf("Retrieve should degrade, not fail: %v", err)
	}
	if len(result.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(result.Documents))
	}
	if result.StrategyMetadata["reranking_error"] == nil {
		t.Error("expected reranking_error to be recorded in metadata")
	}
}

func TestMultiTurnRAGSimpleQueryDoesNotDecompose(t *testing.T) {
	s := seedStore(t, chunk("a", []float32{1, 0}, "alpha", nil))
	m := MultiTurnRAG{}
	result, err := m.Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5, QueryText: "short query",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if result.StrategyMetadata["decomposed"] != false {
		t.Errorf("decomposed = %v, want false", result.StrategyMetadata["decomposed"])
	}
}

type fakeLLM struct {
	content string
}

func (f fakeLLM) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: f.content}, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestMultiTurnRAGDecomposesComplexQuery(t *testing.T) {
	s := seedStore(t,
		chunk("a", []float32{1, 0}, "alpha content", nil),
		chunk("b", []float32{0, 1}, "beta content", nil),
	)
	llmResp := "<question>What is the first aspect of this long question?</question>" +
		"<question>What is the second aspect of this long question?</question>"
	m := MultiTurnRAG{
		LLM: fakeLLM{content: llmResp},
	}
	query := "Tell me about the first aspect and also the second aspect of this topic in detail"
	embedder := fakeEmbedder{vectors: map[string][]float32{
		"What is the first aspect of this long question?":  {1, 0},
		"What is the second aspect of this long question?": {0, 1},
	}}
	result, err := m.Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5, QueryText: query, Embedder: embedder,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if result.StrategyMetadata["decomposed"] != true {
		t.Fatalf("decomposed = %v, want true", result.StrategyMetadata["decomposed"])
	}
	if result.StrategyMetadata["sub_queries_count"] != 2 {
		t.Fatalf("sub_queries_count = %v, want 2", result.StrategyMetadata["sub_queries_count"])
	}
	if len(result.Documents) != 2 {
		t.Fatalf("got %d merged documents, want 2 (deduped)", len(result.Documents))
	}
}

func TestMultiTurnRAGNoEmbedderFallsBack(t *testing.T) {
	s := seedStore(t, chunk("a", []float32{1, 0}, "alpha content", nil))
	m := MultiTurnRAG{LLM: fakeLLM{content: "<question>What is the first aspect of this long question?</question><question>What is the second aspect of this question too?</question>"}}
	query := "Tell me about the first aspect and also the second aspect of this topic in detail"
	result, err := m.Retrieve(context.Background(), Request{
		QueryEmbedding: []float32{1, 0}, Store: s, TopK: 5, QueryText: query,
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if result.StrategyMetadata["fallback_reason"] != "no_embedder" {
		t.Errorf("fallback_reason = %v, want no_embedder", result.StrategyMetadata["fallback_reason"])
	}
}

func TestMergeSubResultsDedupsNearDuplicates(t *testing.T) {
	r1 := &RetrievalResult{
		Documents: []vectorstore.Chunk{chunk("x", nil, "the quick brown fox jumps over the lazy dog", nil)},
		Scores:    []float64{0.9},
	}
	r2 := &RetrievalResult{
		Documents: []vectorstore.Chunk{chunk("y", nil, "the quick brown fox jumps over a lazy dog", nil)},
		Scores:    []float64{0.8},
	}
	merged := mergeSubResults([]*RetrievalResult{r1, r2}, 0.8)
	if len(merged.Documents) != 1 {
		t.Fatalf("got %d documents, want 1 near-duplicate pair collapsed to 1", len(merged.Documents))
	}
	if merged.Documents[0].ID != "x" {
		t.Errorf("kept %s, want higher-scored x", merged.Documents[0].ID)
	}
}

func TestMergeSubResultsSkipsDedupAtThresholdOne(t *testing.T) {
	r1 := &RetrievalResult{
		Documents: []vectorstore.Chunk{chunk("x", nil, "identical text here", nil)},
		Scores:    []float64{0.9},
	}
	r2 := &RetrievalResult{
		Documents: []vectorstore.Chunk{chunk("y", nil, "identical text here", nil)},
		Scores:    []float64{0.8},
	}
	merged := mergeSubResults([]*RetrievalResult{r1, r2}, 1.0)
	if len(merged.Documents) != 2 {
		t.Fatalf("got %d documents, want 2 (dedup disabled at threshold 1.0)", len(merged.Documents))
	}
}

func TestIsComplexQuery(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"short", false},
		{"This is a reasonably long query without any connective markers at all here", false},
		{"This is a reasonably long query and it also has a connective marker in it", true},
		{"Is this long enough? And does it have a second question mark too?", true},
	}
	for _, c := range cases {
		if got := isComplexQuery(c.query, 50); got != c.want {
			t.Errorf("isComplexQuery(%q) = %v, want %v", c.query, got, c.want)
		}
	}
}

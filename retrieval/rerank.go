package retrieval

import (
	"context"

	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// CrossEncoderReranked overfetches a wider candidate window via
// similarity search, then reorders the candidates with a cross-encoder
// reranker scored against the original query text (§4.7.3).
type CrossEncoderReranked struct {
	Reranker Reranker
	// InitialK is how many candidates to overfetch before reranking.
	// Defaults to 30 when zero.
	InitialK int
	// FinalTopK caps the reranked result. Defaults to the caller's
	// req.TopK when zero.
	FinalTopK int
}

func (c CrossEncoderReranked) Retrieve(ctx context.Context, req Request) (*RetrievalResult, error) {
	if req.QueryText == "" {
		return nil, &ragerrors.InvalidArgument{Parameter: "query_text", Reason: "cross_encoder_reranked strategy requires query_text"}
	}

	initialK := c.InitialK
	if initialK <= 0 {
		initialK = 30
	}
	if initialK < req.TopK {
		initialK = req.TopK
	}
	finalTopK := c.FinalTopK
	if finalTopK <= 0 {
		finalTopK = req.TopK
	}

	scored, err := req.Store.Search(ctx, req.QueryEmbedding, initialK, req.MetadataFilter)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "search", Err: err}
	}
	docs, scores := fromScored(scored)

	meta := map[string]any{
		"strategy":   "cross_encoder_reranked",
		"version":    "1",
		"initial_k":  initialK,
		"final_top_k": finalTopK,
	}

	if c.Reranker == nil {
		return truncate(docs, scores, finalTopK, meta), nil
	}

	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}

	reranked, err := c.Reranker.Rerank(ctx, req.QueryText, contents)
	if err != nil {
		// Best-effort: fall back to the un-reranked similarity order
		// rather than failing the whole retrieval (§4.7.3).
		meta["reranking_error"] = err.Error()
		return truncate(docs, scores, finalTopK, meta), nil
	}

	result := applyRerank(docs, reranked)
	return truncate(result.Documents, result.Scores, finalTopK, meta), nil
}

// applyRerank reorders docs by descending reranker score and stamps
// per-chunk reranker_score/rerank_position metadata.
func applyRerank(docs []vectorstore.Chunk, reranked []RerankResult) *RetrievalResult {
	ordered := make([]vectorstore.Chunk, 0, len(reranked))
	scores := make([]float64, 0, len(reranked))
	for pos, r := range reranked {
		if r.Index < 0 || r.Index >= len(docs) {
			continue
		}
		chunk := docs[r.Index].Clone()
		if chunk.Metadata == nil {
			chunk.Metadata = map[string]any{}
		}
		chunk.Metadata["reranker_score"] = r.Score
		chunk.Metadata["rerank_position"] = pos
		ordered = append(ordered, chunk)
		scores = append(scores, r.Score)
	}
	return &RetrievalResult{Documents: ordered, Scores: scores}
}

func truncate(docs []vectorstore.Chunk, scores []float64, topK int, meta map[string]any) *RetrievalResult {
	if topK > 0 && topK < len(docs) {
		docs = docs[:topK]
		scores = scores[:topK]
	}
	return &RetrievalResult{Documents: docs, Scores: scores, StrategyMetadata: meta}
}

var _ Strategy = CrossEncoderReranked{}

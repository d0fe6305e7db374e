package retrieval

import (
	"context"

	"github.com/ragdata-go/ragdata/ragerrors"
)

// BasicSimilarity is the plainest strategy: forward the query embedding
// straight to the store's similarity search (§4.7.1).
type BasicSimilarity struct{}

func (BasicSimilarity) Retrieve(ctx context.Context, req Request) (*RetrievalResult, error) {
	scored, err := req.Store.Search(ctx, req.QueryEmbedding, req.TopK, req.MetadataFilter)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "search", Err: err}
	}
	docs, scores := fromScored(scored)
	return &RetrievalResult{
		Documents: docs,
		Scores:    scores,
		StrategyMetadata: map[string]any{
			"strategy": "basic_similarity",
			"version":  "1",
		},
	}, nil
}

// MetadataFiltered wraps BasicSimilarity but refuses to run without a
// non-empty metadata filter — a dataset configured for this strategy
// expects every query to be scoped (§4.7.2).
type MetadataFiltered struct{}

func (MetadataFiltered) Retrieve(ctx context.Context, req Request) (*RetrievalResult, error) {
	if len(req.MetadataFilter) == 0 {
		return nil, &ragerrors.InvalidArgument{Parameter: "metadata_filter", Reason: "metadata_filtered strategy requires a non-empty filter"}
	}
	result, err := (BasicSimilarity{}).Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	result.StrategyMetadata["strategy"] = "metadata_filtered"
	return result, nil
}

var (
	_ Strategy = BasicSimilarity{}
	_ Strategy = MetadataFiltered{}
)

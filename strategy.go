package ragdata

import (
	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/ragconfig"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/retrieval"
)

// buildStrategy turns a resolved retrieval strategy configuration into
// a live retrieval.Strategy, instantiating the llm.Provider(s) its
// resolved model/reranker connection details name — the step
// ragconfig.Resolver deliberately leaves to this composition root
// (§4.10).
func buildStrategy(resolved *ragconfig.ResolvedStrategy, strategies map[string]ragconfig.StrategyConfig) (retrieval.Strategy, error) {
	switch resolved.Name {
	case "basic_similarity", "":
		return retrieval.BasicSimilarity{}, nil
	case "metadata_filtered":
		return retrieval.MetadataFiltered{}, nil
	case "cross_encoder_reranked":
		reranker, err := buildReranker(resolved)
		if err != nil {
			return nil, err
		}
		return retrieval.CrossEncoderReranked{
			Reranker:  reranker,
			InitialK:  resolved.InitialK,
			FinalTopK: resolved.FinalTopK,
		}, nil
	case "multi_turn_rag":
		chatLLM, err := buildChatLLM(resolved)
		if err != nil {
			return nil, err
		}
		reranker, err := buildReranker(resolved)
		if err != nil {
			return nil, err
		}
		base, err := resolveNamedStrategy(resolved.BaseStrategyName, strategies)
		if err != nil {
			return nil, err
		}
		return retrieval.MultiTurnRAG{
			LLM:      chatLLM,
			Reranker: reranker,
			Base:     base,
			Config: retrieval.MultiTurnConfig{
				ComplexityThreshold: resolved.ComplexityThreshold,
				MaxSubQueries:       resolved.MaxSubQueries,
				MinQueryLength:      resolved.MinQueryLength,
				SubQueryTopK:        resolved.SubQueryTopK,
				MaxWorkers:          resolved.MaxWorkers,
				DedupThreshold:      resolved.DedupThreshold,
				FinalTopK:           resolved.FinalTopK,
				Model:               resolved.ModelID,
			},
		}, nil
	default:
		return nil, &ragerrors.InvalidArgument{Parameter: "retrieval_strategy", Reason: "unknown strategy " + resolved.Name}
	}
}

// resolveNamedStrategy looks up a named base strategy for MultiTurnRAG
// to delegate to, per the lazy-initialization supplemented feature
// (SPEC_FULL.md §9.2). A nil Strategy (not basic_similarity) is
// returned when no name is set, letting retrieval.MultiTurnRAG apply
// its own default.
func resolveNamedStrategy(name string, strategies map[string]ragconfig.StrategyConfig) (retrieval.Strategy, error) {
	if name == "" {
		return nil, nil
	}
	cfg, ok := strategies[name]
	if !ok {
		return nil, &ragerrors.NotFound{Resource: "strategy", Name: name}
	}
	resolved := &ragconfig.ResolvedStrategy{StrategyConfig: cfg}
	return buildStrategy(resolved, strategies)
}

// buildChatLLM instantiates the llm.Provider a resolved strategy's
// model names, as a retrieval.LLM.
func buildChatLLM(resolved *ragconfig.ResolvedStrategy) (retrieval.LLM, error) {
	if resolved.ModelID == "" {
		return nil, nil
	}
	provider, err := llm.NewProvider(llm.Config{
		Provider: resolved.ModelProvider,
		Model:    resolved.ModelID,
		BaseURL:  resolved.ModelBaseURL,
		APIKey:   resolved.ModelAPIKey,
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// buildReranker instantiates an HTTP cross-encoder reranker client
// from a resolved strategy's reranker model details, or nil when none
// is configured (both CrossEncoderReranked and MultiTurnRAG treat a
// nil Reranker as "fall back to unranked order").
func buildReranker(resolved *ragconfig.ResolvedStrategy) (retrieval.Reranker, error) {
	if resolved.RerankerModelBaseURL == "" {
		return nil, nil
	}
	return newHTTPReranker(resolved.RerankerModelBaseURL, resolved.RerankerModelID, resolved.RerankerModelAPIKey), nil
}

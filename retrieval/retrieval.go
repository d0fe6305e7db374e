// Package retrieval implements the Retrieval Strategy Family (C7): a
// set of interchangeable strategies that turn a query into a
// RetrievalResult against a vectorstore.Store. Every strategy shares
// the same Retrieve signature so a dataset's configured strategy name
// resolves to a drop-in implementation (§4.7).
package retrieval

import (
	"context"

	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// Embedder computes vector embeddings for text, used by MultiTurnRAG to
// embed decomposed sub-queries. Any llm provider adapter satisfies this
// structurally.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the chat-completion contract MultiTurnRAG uses for query
// decomposition. The llm package's provider adapters (ollama, openai,
// groq, ...) satisfy this directly via their Chat method.
type LLM interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// RerankResult is one document's cross-encoder score, keyed by its
// position in the documents slice passed to Rerank.
type RerankResult struct {
	Index int
	Score float64
}

// Reranker scores (query, document) pairs with a cross-encoder model —
// more accurate than a bi-encoder's cosine similarity but too expensive
// to run over an entire collection, so callers overfetch with a cheap
// similarity search first and rerank only the candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankResult, error)
}

// RetrievalResult is the uniform output of every strategy: parallel
// Documents/Scores slices in descending score order, plus
// strategy-specific diagnostic metadata (§4.7, §8 Invariant 5).
type RetrievalResult struct {
	Documents        []vectorstore.Chunk
	Scores           []float64
	StrategyMetadata map[string]any
}

// Request bundles every input a strategy might need. Not every
// strategy uses every field — BasicSimilarity ignores QueryText and
// Embedder entirely, for instance.
type Request struct {
	QueryEmbedding []float32
	Store          vectorstore.Store
	TopK           int
	QueryText      string
	Embedder       Embedder
	MetadataFilter vectorstore.MetadataFilter
}

// Strategy is the shared shape every retrieval strategy implements.
type Strategy interface {
	Retrieve(ctx context.Context, req Request) (*RetrievalResult, error)
}

// fromScored converts store results into the parallel Documents/Scores
// shape every strategy returns.
func fromScored(scored []vectorstore.Scored) ([]vectorstore.Chunk, []float64) {
	docs := make([]vectorstore.Chunk, len(scored))
	scores := make([]float64, len(scored))
	for i, s := range scored {
		docs[i] = s.Chunk
		scores[i] = s.Score
	}
	return docs, scores
}

package ragdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ragdata-go/ragdata/retrieval"
)

// httpReranker calls a cross-encoder reranking endpoint (the shape
// served by text-embeddings-inference, vLLM's /rerank, and similar
// local inference servers), satisfying retrieval.Reranker. It lives at
// the composition root rather than in the llm package because its
// return type names retrieval.RerankResult directly, and llm must not
// import retrieval (retrieval already imports llm for its ChatRequest/
// ChatResponse DTOs).
type httpReranker struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func newHTTPReranker(baseURL, model, apiKey string) *httpReranker {
	return &httpReranker{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

var _ retrieval.Reranker = (*httpReranker)(nil)

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *httpReranker) Rerank(ctx context.Context, query string, documents []string) ([]retrieval.RerankResult, error) {
	body, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded rerankResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	out := make([]retrieval.RerankResult, len(decoded.Results))
	for i, r := range decoded.Results {
		out[i] = retrieval.RerankResult{Index: r.Index, Score: r.RelevanceScore}
	}
	return out, nil
}

package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// MultiTurnConfig tunes the complexity-detection, decomposition, and
// fan-out behaviour of MultiTurnRAG (§4.7.4). Zero values resolve to
// the documented defaults in effectiveConfig.
type MultiTurnConfig struct {
	// ComplexityThreshold is the minimum query_text length (runes)
	// before a query is even considered for decomposition. Default 50.
	ComplexityThreshold int
	// MaxSubQueries bounds how many sub-questions are extracted from
	// the decomposition response, clamped to [1,5]. Default 3.
	MaxSubQueries int
	// MinQueryLength discards extracted sub-questions shorter than
	// this many characters. Default 20.
	MinQueryLength int
	// SubQueryTopK is the top_k each sub-query's base retrieval uses.
	// Default 10.
	SubQueryTopK int
	// MaxWorkers caps the concurrent sub-query fan-out, clamped to
	// [1,10]. Default 3.
	MaxWorkers int
	// DedupThreshold is the word-set Jaccard similarity above which
	// two merged documents are treated as near-duplicates. A value of
	// 1.0 disables the near-duplicate pass (only exact-id dedup
	// runs). Default 0.95.
	DedupThreshold float64
	// FinalTopK caps the merged result before the caller's own TopK
	// is applied; 0 means "no cap beyond TopK".
	FinalTopK int
	// Model names the chat model to request for decomposition, passed
	// through verbatim to llm.ChatRequest.Model.
	Model string
}

func (c MultiTurnConfig) resolved() MultiTurnConfig {
	out := c
	if out.ComplexityThreshold <= 0 {
		out.ComplexityThreshold = 50
	}
	if out.MaxSubQueries <= 0 {
		out.MaxSubQueries = 3
	}
	if out.MaxSubQueries > 5 {
		out.MaxSubQueries = 5
	}
	if out.MinQueryLength <= 0 {
		out.MinQueryLength = 20
	}
	if out.SubQueryTopK <= 0 {
		out.SubQueryTopK = 10
	}
	if out.MaxWorkers <= 0 {
		out.MaxWorkers = 3
	}
	if out.MaxWorkers > 10 {
		out.MaxWorkers = 10
	}
	if out.DedupThreshold <= 0 {
		out.DedupThreshold = 0.95
	}
	return out
}

// MultiTurnRAG decomposes complex, multi-aspect queries into simpler
// sub-queries, retrieves each independently through Base, then merges
// and deduplicates the combined candidate set (§4.7.4). Simple queries
// are delegated to Base untouched.
//
// State machine: Received -> Classified(simple|complex) -> terminal.
// The complex path never retries a failed decomposition; it falls back
// to the simple path instead.
type MultiTurnRAG struct {
	LLM      LLM
	Reranker Reranker
	Base     Strategy
	Config   MultiTurnConfig
}

var multiAspectMarkers = []string{"and", "also", "additionally", "furthermore", "moreover"}

// isComplexQuery implements the §4.7.4 complexity test: long enough AND
// carrying a multi-aspect marker (a connective word, or more than one
// question mark).
func isComplexQuery(query string, threshold int) bool {
	if len([]rune(query)) < threshold {
		return false
	}
	lower := strings.ToLower(query)
	if strings.Count(lower, "?") > 1 {
		return true
	}
	for _, m := range multiAspectMarkers {
		if containsWord(lower, m) {
			return true
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], word)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		leftOK := start == 0 || !isWordRune(rune(haystack[start-1]))
		rightOK := end == len(haystack) || !isWordRune(rune(haystack[end]))
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (m MultiTurnRAG) base() Strategy {
	if m.Base != nil {
		return m.Base
	}
	return BasicSimilarity{}
}

// runBase executes the configured base strategy at the given top_k.
// When Reranker is set and the caller supplied query text, it runs
// CrossEncoderReranked (similarity search, then reranking) instead, and
// the configured base strategy is not used.
func (m MultiTurnRAG) runBase(ctx context.Context, req Request, topK int) (*RetrievalResult, error) {
	sub := req
	sub.TopK = topK
	if m.Reranker != nil && sub.QueryText != "" {
		reranked := CrossEncoderReranked{Reranker: m.Reranker, InitialK: topK, FinalTopK: topK}
		return reranked.Retrieve(ctx, sub)
	}
	return m.base().Retrieve(ctx, sub)
}

func (m MultiTurnRAG) Retrieve(ctx context.Context, req Request) (*RetrievalResult, error) {
	cfg := m.Config.resolved()

	if !isComplexQuery(req.QueryText, cfg.ComplexityThreshold) {
		return m.simpleResult(ctx, req, "")
	}
	if m.LLM == nil {
		return m.simpleResult(ctx, req, "no_llm")
	}

	subQueries, decompErr := m.decompose(ctx, req.QueryText, cfg)
	if len(subQueries) == 0 {
		result, err := m.simpleResult(ctx, req, "")
		if err != nil {
			return nil, err
		}
		if decompErr != nil {
			result.StrategyMetadata["decomposition_error"] = decompErr.Error()
		}
		return result, nil
	}
	if req.Embedder == nil {
		return m.simpleResult(ctx, req, "no_embedder")
	}

	embeddings, err := req.Embedder.Embed(ctx, subQueries)
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "embed_sub_queries", Err: err}
	}

	subResults := m.fanOut(ctx, req, subQueries, embeddings, cfg)

	totalRetrieved := 0
	for _, r := range subResults {
		totalRetrieved += len(r.Documents)
	}

	merged := mergeSubResults(subResults, cfg.DedupThreshold)

	finalCap := cfg.FinalTopK
	if finalCap <= 0 || (req.TopK > 0 && req.TopK < finalCap) {
		finalCap = req.TopK
	}
	if finalCap > 0 && finalCap < len(merged.Documents) {
		merged.Documents = merged.Documents[:finalCap]
		merged.Scores = merged.Scores[:finalCap]
	}

	merged.StrategyMetadata = map[string]any{
		"strategy":           "multi_turn_rag",
		"version":            "1",
		"decomposed":         true,
		"sub_queries":        subQueries,
		"sub_queries_count":  len(subQueries),
		"total_retrieved":    totalRetrieved,
		"final_count":        len(merged.Documents),
		"dedup_threshold":    cfg.DedupThreshold,
	}
	return merged, nil
}

// simpleResult runs the non-decomposed path: the query passes straight
// through to the base strategy (with optional reranking).
func (m MultiTurnRAG) simpleResult(ctx context.Context, req Request, fallbackReason string) (*RetrievalResult, error) {
	result, err := m.runBase(ctx, req, req.TopK)
	if err != nil {
		return nil, err
	}
	result.StrategyMetadata = map[string]any{
		"strategy":   "multi_turn_rag",
		"version":    "1",
		"decomposed": false,
	}
	if fallbackReason != "" {
		result.StrategyMetadata["fallback_reason"] = fallbackReason
	}
	return result, nil
}

// fanOut runs one base-strategy retrieval per sub-query concurrently,
// bounded by a semaphore channel capped at cfg.MaxWorkers — the same
// errgroup + buffered-channel shape used for bounded parallel sub-query
// search elsewhere in the ecosystem. A sub-query's failure never aborts
// the batch: it resolves to an empty RetrievalResult instead.
func (m MultiTurnRAG) fanOut(ctx context.Context, req Request, subQueries []string, embeddings [][]float32, cfg MultiTurnConfig) []*RetrievalResult {
	results := make([]*RetrievalResult, len(subQueries))
	sem := make(chan struct{}, cfg.MaxWorkers)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range subQueries {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				mu.Lock()
				results[i] = &RetrievalResult{}
				mu.Unlock()
				return nil
			}

			subReq := req
			subReq.QueryText = subQueries[i]
			subReq.QueryEmbedding = embeddings[i]

			r, err := m.runBase(gctx, subReq, cfg.SubQueryTopK)
			mu.Lock()
			if err != nil {
				results[i] = &RetrievalResult{}
			} else {
				results[i] = r
			}
			mu.Unlock()
			// Individual sub-query failures are swallowed, not
			// propagated: the batch continues per §4.7.4 step 3.
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// mergeSubResults combines every sub-query's documents, deduplicating
// first by exact chunk ID and then by word-set Jaccard similarity
// above threshold (skipped entirely when threshold is 1.0), finally
// sorting by descending score (§8 Invariant 6).
func mergeSubResults(subResults []*RetrievalResult, threshold float64) *RetrievalResult {
	type scoredDoc struct {
		doc   vectorstore.Chunk
		score float64
	}
	var all []scoredDoc
	seenIDs := make(map[string]bool)
	for _, r := range subResults {
		if r == nil {
			continue
		}
		for i, doc := range r.Documents {
			if doc.ID != "" {
				if seenIDs[doc.ID] {
					continue
				}
				seenIDs[doc.ID] = true
			}
			score := 0.0
			if i < len(r.Scores) {
				score = r.Scores[i]
			}
			all = append(all, scoredDoc{doc: doc, score: score})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	var kept []scoredDoc
	if threshold >= 1.0 {
		kept = all
	} else {
		wordSets := make([]map[string]bool, len(all))
		for _, c := range all {
			isDup := false
			wordsC := wordSet(c.doc.Content)
			for i, k := range kept {
				if wordSets[i] == nil {
					wordSets[i] = wordSet(k.doc.Content)
				}
				if jaccard(wordsC, wordSets[i]) >= threshold {
					isDup = true
					break
				}
			}
			if !isDup {
				wordSets[len(kept)] = wordsC
				kept = append(kept, c)
			}
		}
	}

	docs := make([]vectorstore.Chunk, len(kept))
	scores := make([]float64, len(kept))
	for i, c := range kept {
		docs[i] = c.doc
		scores[i] = c.score
	}
	return &RetrievalResult{Documents: docs, Scores: scores}
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

var questionTagPattern = regexp.MustCompile(`(?is)<question>(.*?)</question>`)
var thinkBlockPattern = regexp.MustCompile(`(?is)<think>.*?</think>`)

// decompose asks the configured LLM to split query into 2-3 standalone
// sub-questions, tagged <question>...</question>, per §4.7.4 step 2.
func (m MultiTurnRAG) decompose(ctx context.Context, query string, cfg MultiTurnConfig) ([]string, error) {
	req := llm.ChatRequest{
		Model: cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: decompositionSystemPrompt},
			{Role: "user", Content: "Input: " + query},
		},
		Temperature: 0.3,
		MaxTokens:   200,
	}
	resp, err := m.LLM.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}

	text := applyStopSequences(resp.Content, []string{"Input:", "\n\n\n"})
	text = thinkBlockPattern.ReplaceAllString(text, "")

	matches := questionTagPattern.FindAllStringSubmatch(text, -1)
	var subQueries []string
	for _, mtch := range matches {
		q := strings.TrimSpace(mtch[1])
		if len([]rune(q)) < cfg.MinQueryLength {
			continue
		}
		subQueries = append(subQueries, q)
		if len(subQueries) >= cfg.MaxSubQueries {
			break
		}
	}
	return subQueries, nil
}

// applyStopSequences truncates text at the first occurrence of any stop
// sequence, emulating a provider-level stop parameter when the
// underlying Chat API does not expose one directly.
func applyStopSequences(text string, stops []string) string {
	cut := len(text)
	for _, s := range stops {
		if idx := strings.Index(text, s); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return text[:cut]
}

const decompositionSystemPrompt = `You decompose a complex question into 2-3 simpler, standalone sub-questions that together cover everything the original asks. Wrap each sub-question in <question> and </question> tags and output nothing else.`

var _ Strategy = MultiTurnRAG{}

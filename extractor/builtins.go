package extractor

import (
	"regexp"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Statistics extractor
// ---------------------------------------------------------------------------

// StatisticsExtractor computes word_count, character_count,
// sentence_count, and reading_time_minutes (word_count/200), per §4.3.
type StatisticsExtractor struct{}

func NewStatisticsExtractor() *StatisticsExtractor { return &StatisticsExtractor{} }

func (e *StatisticsExtractor) Name() string { return "statistics" }

var sentenceBoundary = regexp.MustCompile(`[.!?]+(\s|$)`)

func (e *StatisticsExtractor) Extract(chunk Chunk) (map[string]any, error) {
	words := strings.Fields(chunk.Content)
	wordCount := len(words)
	sentenceCount := len(sentenceBoundary.FindAllString(chunk.Content, -1))
	if sentenceCount == 0 && strings.TrimSpace(chunk.Content) != "" {
		sentenceCount = 1
	}
	return map[string]any{
		"word_count":           wordCount,
		"character_count":      len([]rune(chunk.Content)),
		"sentence_count":       sentenceCount,
		"reading_time_minutes": float64(wordCount) / 200.0,
	}, nil
}

// ---------------------------------------------------------------------------
// Keywords extractor
// ---------------------------------------------------------------------------

// KeywordsExtractor ranks words by frequency against a fixed stop-word
// list and returns the top N.
type KeywordsExtractor struct {
	stopWords map[string]struct{}
	topN      int
}

func NewKeywordsExtractor(stopWords []string, topN int) *KeywordsExtractor {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	if topN <= 0 {
		topN = 10
	}
	return &KeywordsExtractor{stopWords: set, topN: topN}
}

func (e *KeywordsExtractor) Name() string { return "keywords" }

var wordToken = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)

func (e *KeywordsExtractor) Extract(chunk Chunk) (map[string]any, error) {
	freq := map[string]int{}
	for _, tok := range wordToken.FindAllString(chunk.Content, -1) {
		w := strings.ToLower(tok)
		if len(w) < 3 {
			continue
		}
		if _, stop := e.stopWords[w]; stop {
			continue
		}
		freq[w]++
	}

	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, kv{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	n := e.topN
	if n > len(ranked) {
		n = len(ranked)
	}
	keywords := make([]string, n)
	for i := 0; i < n; i++ {
		keywords[i] = ranked[i].word
	}
	return map[string]any{"keywords": keywords}, nil
}

// DefaultStopWords is a fixed English stop-word list used by
// KeywordsExtractor and LanguageExtractor.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
	"be", "been", "being", "to", "of", "in", "on", "at", "by", "for",
	"with", "about", "against", "between", "into", "through", "during",
	"before", "after", "above", "below", "from", "up", "down", "out",
	"off", "over", "under", "again", "further", "then", "once", "here",
	"there", "when", "where", "why", "how", "all", "any", "both", "each",
	"few", "more", "most", "other", "some", "such", "no", "nor", "not",
	"only", "own", "same", "so", "than", "too", "very", "can", "will",
	"just", "should", "now", "this", "that", "these", "those", "it",
	"its", "as", "if", "do", "does", "did", "have", "has", "had", "i",
	"you", "he", "she", "we", "they", "them", "his", "her", "their",
}

// ---------------------------------------------------------------------------
// Entities extractor
// ---------------------------------------------------------------------------

// EntitiesExtractor is a heuristic named-entity detector: capitalised
// multi-word tokens, deduplicated, per §4.3.
type EntitiesExtractor struct{}

func NewEntitiesExtractor() *EntitiesExtractor { return &EntitiesExtractor{} }

func (e *EntitiesExtractor) Name() string { return "entities" }

var capitalizedRun = regexp.MustCompile(`\b([A-Z][a-zA-Z'-]*(?:\s+[A-Z][a-zA-Z'-]*)+)\b`)

func (e *EntitiesExtractor) Extract(chunk Chunk) (map[string]any, error) {
	seen := map[string]struct{}{}
	var entities []string
	for _, m := range capitalizedRun.FindAllString(chunk.Content, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		entities = append(entities, m)
	}
	return map[string]any{"entities": entities}, nil
}

// ---------------------------------------------------------------------------
// Language extractor
// ---------------------------------------------------------------------------

// LanguageExtractor is a coarse heuristic: if a threshold share of
// tokens are in an English stop-word whitelist, tag "en"; else
// "unknown".
type LanguageExtractor struct {
	whitelist map[string]struct{}
}

func NewLanguageExtractor() *LanguageExtractor {
	set := make(map[string]struct{}, len(DefaultStopWords))
	for _, w := range DefaultStopWords {
		set[w] = struct{}{}
	}
	return &LanguageExtractor{whitelist: set}
}

func (e *LanguageExtractor) Name() string { return "language" }

func (e *LanguageExtractor) Extract(chunk Chunk) (map[string]any, error) {
	words := wordToken.FindAllString(strings.ToLower(chunk.Content), -1)
	if len(words) == 0 {
		return map[string]any{"language": "unknown"}, nil
	}
	hits := 0
	for _, w := range words {
		if _, ok := e.whitelist[w]; ok {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(words))
	if ratio >= 0.15 {
		return map[string]any{"language": "en"}, nil
	}
	return map[string]any{"language": "unknown"}, nil
}

// ---------------------------------------------------------------------------
// Document-type extractor
// ---------------------------------------------------------------------------

// DocumentTypeExtractor pattern-matches content against a small set of
// document-category regexes, per §4.3.
type DocumentTypeExtractor struct {
	rules []docTypeRule
}

type docTypeRule struct {
	pattern *regexp.Regexp
	label   string
}

func NewDocumentTypeExtractor() *DocumentTypeExtractor {
	return &DocumentTypeExtractor{rules: []docTypeRule{
		{regexp.MustCompile(`(?i)\b(contract|agreement)\b`), "legal"},
		{regexp.MustCompile(`(?i)\b(manual|guide|how[- ]to)\b`), "documentation"},
		{regexp.MustCompile(`(?i)\b(invoice|receipt|purchase order)\b`), "financial"},
		{regexp.MustCompile(`(?i)\b(shall|must|requirement|specification)\b`), "specification"},
		{regexp.MustCompile(`(?i)\b(minutes|agenda|attendees)\b`), "meeting_notes"},
	}}
}

func (e *DocumentTypeExtractor) Name() string { return "document_type" }

func (e *DocumentTypeExtractor) Extract(chunk Chunk) (map[string]any, error) {
	for _, r := range e.rules {
		if r.pattern.MatchString(chunk.Content) {
			return map[string]any{"document_type": r.label}, nil
		}
	}
	return map[string]any{"document_type": "general"}, nil
}

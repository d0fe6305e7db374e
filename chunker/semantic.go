package chunker

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// semanticTargetDivisor implements the "target ≈ chunk_size/4 tokens"
// rule from §4.1: chunk_size is expressed in characters everywhere
// else in the contract, so the semantic strategy converts it to a
// token budget before boundary detection.
const semanticTargetDivisor = 4

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("chunker: tiktoken encoding unavailable, falling back to word-count estimate", "error", err)
			return
		}
		enc = e
	})
	return enc
}

// splitSemantic implements the `semantic` strategy: it packs the
// `sentences` strategy's sentence boundaries (paragraphs when no
// sentence is found) into fragments of about chunk_size/4 tokens each.
// Tokens are counted with the BPE tokenizer; when the tokenizer is
// unavailable (offline environments without the bundled BPE ranks)
// the count falls back to a word-count estimate of 1.3 tokens per word.
func splitSemantic(text string, cfg Config) []string {
	targetTokens := cfg.ChunkSize / semanticTargetDivisor
	if targetTokens < 1 {
		targetTokens = 1
	}

	e := encoding()
	tokenCount := func(s string) int {
		if e == nil {
			return int(float64(len(strings.Fields(s))) * 1.3)
		}
		return len(e.Encode(s, nil, nil))
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		sentences = splitParagraphs(text)
	}

	var fragments []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		fragments = append(fragments, strings.TrimSpace(current.String()))
		current.Reset()
		currentTokens = 0
	}

	for _, s := range sentences {
		st := tokenCount(s)
		if currentTokens+st > targetTokens && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(s)
		currentTokens += st
	}
	flush()

	if len(fragments) == 0 {
		fragments = []string{strings.TrimSpace(text)}
	}
	return fragments
}

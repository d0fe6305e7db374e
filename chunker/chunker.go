// Package chunker implements the C2 component: a pure function cutting
// parser output into size-bounded, optionally overlapping fragments
// under a chosen strategy.
package chunker

import (
	"fmt"
	"strings"

	"github.com/ragdata-go/ragdata/ragerrors"
)

// Strategy names the chunk-splitting algorithm. Parsers may pre-chunk
// their output (e.g. markdown headings); the chunker is then either a
// no-op or a secondary size-bounded re-split.
type Strategy string

const (
	StrategySemantic   Strategy = "semantic"
	StrategySections   Strategy = "sections"
	StrategyParagraphs Strategy = "paragraphs"
	StrategySentences  Strategy = "sentences"
	StrategyCharacters Strategy = "characters"
)

// Config carries the chunk-size contract from §4.1.
type Config struct {
	Strategy     Strategy
	ChunkSize    int // target size in characters; the semantic strategy turns it into a chunk_size/4 token budget
	ChunkOverlap int
	MinChunkSize int
	MaxChunkSize int
}

// DefaultConfig holds the character-based chunking defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:     StrategyParagraphs,
		ChunkSize:    1024,
		ChunkOverlap: 128,
		MinChunkSize: 50,
		MaxChunkSize: 4096,
	}
}

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyParagraphs
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = 50
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = c.ChunkSize * 4
	}
	return c
}

func (c Config) validate() error {
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return &ragerrors.InvalidArgument{
			Parameter: "chunk_overlap",
			Reason:    fmt.Sprintf("must satisfy 0 <= chunk_overlap < chunk_size (got overlap=%d, chunk_size=%d)", c.ChunkOverlap, c.ChunkSize),
		}
	}
	if c.MinChunkSize > c.ChunkSize {
		return &ragerrors.InvalidArgument{
			Parameter: "min_chunk_size",
			Reason:    "min_chunk_size must not exceed chunk_size",
		}
	}
	if c.MaxChunkSize < c.ChunkSize {
		return &ragerrors.InvalidArgument{
			Parameter: "max_chunk_size",
			Reason:    "max_chunk_size must not be smaller than chunk_size",
		}
	}
	return nil
}

// Chunk is the pure function of (text, strategy, chunk_size,
// chunk_overlap, min, max) -> list<string> required by §4.2. It is
// deterministic for identical inputs and preserves UTF-8 code point
// boundaries under every strategy.
func Chunk(text string, cfg Config) ([]string, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var raw []string
	switch cfg.Strategy {
	case StrategySections:
		raw = splitSections(text, cfg)
	case StrategyParagraphs:
		raw = splitParagraphsPacked(text, cfg)
	case StrategySentences:
		raw = splitSentencesPacked(text, cfg)
	case StrategyCharacters:
		raw = splitCharacters(text, cfg)
	case StrategySemantic:
		raw = splitSemantic(text, cfg)
	default:
		return nil, &ragerrors.InvalidArgument{Parameter: "strategy", Reason: fmt.Sprintf("unknown chunk strategy %q", cfg.Strategy)}
	}

	return enforceBounds(raw, cfg), nil
}

// enforceBounds discards fragments shorter than MinChunkSize (unless it
// is the only fragment) and force-splits fragments longer than
// MaxChunkSize using the characters strategy.
func enforceBounds(fragments []string, cfg Config) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if len([]rune(f)) > cfg.MaxChunkSize {
			forced := splitCharacters(f, Config{
				Strategy:     StrategyCharacters,
				ChunkSize:    cfg.MaxChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
				MinChunkSize: cfg.MinChunkSize,
				MaxChunkSize: cfg.MaxChunkSize,
			})
			out = append(out, forced...)
			continue
		}
		out = append(out, f)
	}

	if len(out) <= 1 {
		return out
	}

	filtered := make([]string, 0, len(out))
	for _, f := range out {
		if len([]rune(f)) >= cfg.MinChunkSize {
			filtered = append(filtered, f)
		}
	}
	if len(filtered) == 0 && len(out) > 0 {
		// Every fragment was short; keep the single longest one rather
		// than returning nothing for non-empty input.
		longest := out[0]
		for _, f := range out[1:] {
			if len(f) > len(longest) {
				longest = f
			}
		}
		return []string{longest}
	}
	return filtered
}

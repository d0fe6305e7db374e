// Package extractor implements the C3 component: enrichment of chunks
// with derived metadata via a priority-sorted, pattern-matched chain of
// extractors. Failures are non-fatal — the chunk passes through and a
// warning is recorded.
package extractor

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Chunk is the minimal shape an extractor needs: content plus the
// metadata map it enriches in place. blobproc builds these values
// directly and carries their metadata onto the vectorstore.Chunk values
// it stamps.
type Chunk struct {
	Content  string
	Metadata map[string]any
}

// Extractor enriches a chunk with derived metadata keys.
type Extractor interface {
	Name() string
	// Extract returns the additional metadata to merge into the
	// chunk's metadata map. It must not mutate chunk.Metadata itself.
	Extract(chunk Chunk) (map[string]any, error)
}

// Registration pairs an Extractor with its routing rule: glob include
// patterns (case-insensitive, matched against the chunk's source
// filename), an optional exclude list, a priority (lower runs first),
// and declared dependencies (extractor names that must run earlier —
// supplemented from original_source/rag/core/base.py's
// `get_dependencies()`).
type Registration struct {
	Extractor       Extractor
	IncludePatterns []string
	ExcludePatterns []string
	Priority        int
	DependsOn       []string
}

// Chain is an ordered, validated set of extractor registrations.
type Chain struct {
	regs []Registration
}

// NewChain builds a Chain from registrations, sorting by
// (priority, name) and validating that every DependsOn name resolves
// to another member of the chain with a strictly lower effective
// position (a simple topological check — cycles are rejected at
// construction rather than silently tolerated, resolving the open
// question of unspecified dependency-cycle behaviour in the source).
func NewChain(regs []Registration) (*Chain, error) {
	sorted := make([]Registration, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Extractor.Name() < sorted[j].Extractor.Name()
	})

	position := make(map[string]int, len(sorted))
	for i, r := range sorted {
		position[r.Extractor.Name()] = i
	}
	for _, r := range sorted {
		for _, dep := range r.DependsOn {
			depPos, ok := position[dep]
			if !ok {
				return nil, &dependencyError{extractor: r.Extractor.Name(), missing: dep}
			}
			if depPos >= position[r.Extractor.Name()] {
				return nil, &dependencyError{extractor: r.Extractor.Name(), missing: dep, cycle: true}
			}
		}
	}

	return &Chain{regs: sorted}, nil
}

type dependencyError struct {
	extractor string
	missing   string
	cycle     bool
}

func (e *dependencyError) Error() string {
	if e.cycle {
		return "extractor " + e.extractor + " depends on " + e.missing + " which runs later or cycles back"
	}
	return "extractor " + e.extractor + " depends on unregistered extractor " + e.missing
}

// Run applies every matching registration, in order, to each chunk's
// metadata map. A per-extractor failure is logged and skipped; it
// never aborts the chain or discards the chunk.
func (c *Chain) Run(source string, chunks []Chunk) {
	for i := range chunks {
		for _, reg := range c.regs {
			if !matches(source, reg.IncludePatterns, reg.ExcludePatterns) {
				continue
			}
			out, err := reg.Extractor.Extract(chunks[i])
			if err != nil {
				slog.Warn("extractor failed, passing chunk through unchanged",
					"extractor", reg.Extractor.Name(), "source", source, "error", err)
				continue
			}
			if chunks[i].Metadata == nil {
				chunks[i].Metadata = map[string]any{}
			}
			for k, v := range out {
				chunks[i].Metadata[k] = v
			}
		}
	}
}

// matches applies the same glob-match rule as the parser registry
// (§4.1 step 1): a registration with no include patterns matches every
// file; exclude patterns are checked first.
func matches(filename string, include, exclude []string) bool {
	base := strings.ToLower(filepath.Base(filename))
	for _, pat := range exclude {
		if ok, _ := filepath.Match(strings.ToLower(pat), base); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if ok, _ := filepath.Match(strings.ToLower(pat), base); ok {
			return true
		}
	}
	return false
}

// DefaultChain wires every builtin extractor with the priorities and
// patterns from §4.3, in the order they are listed there.
func DefaultChain() (*Chain, error) {
	return NewChain([]Registration{
		{Extractor: NewStatisticsExtractor(), Priority: 0},
		{Extractor: NewLanguageExtractor(), Priority: 10, DependsOn: []string{"statistics"}},
		{Extractor: NewKeywordsExtractor(DefaultStopWords, 10), Priority: 20},
		{Extractor: NewEntitiesExtractor(), Priority: 20},
		{Extractor: NewDocumentTypeExtractor(), Priority: 30},
		{Extractor: NewStructureExtractor(), Priority: 30},
	})
}

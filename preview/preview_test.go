package preview

import (
	"context"
	"testing"

	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/extractor"
)

func newTestProcessor(t *testing.T) *blobproc.Processor {
	t.Helper()
	chain, err := extractor.DefaultChain()
	if err != nil {
		t.Fatalf("extractor.DefaultChain: %v", err)
	}
	return blobproc.NewProcessor(blobproc.DefaultChain(), chain, chunker.Config{
		Strategy: chunker.StrategyParagraphs, ChunkSize: 200, ChunkOverlap: 0, MinChunkSize: 5, MaxChunkSize: 800,
	})
}

func TestGeneratePreviewLocatesChunks(t *testing.T) {
	p := newTestProcessor(t)
	text := "First paragraph of reasonable length to survive filtering.\n\nSecond paragraph also long enough to survive."

	result, err := Generate(context.Background(), p, []byte(text), "doc.txt", nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for _, c := range result.Chunks {
		if c.Start < 0 || c.End < 0 {
			t.Fatalf("chunk %d: expected a located position, got (%d,%d)", c.Index, c.Start, c.End)
		}
		if result.OriginalText[c.Start:c.End] != c.Content {
			t.Errorf("chunk %d: OriginalText[%d:%d] != Content", c.Index, c.Start, c.End)
		}
	}
	if result.ParserUsed != "text" {
		t.Errorf("ParserUsed = %q, want text", result.ParserUsed)
	}
	if result.TotalChunks != len(result.Chunks) {
		t.Errorf("TotalChunks = %d, want %d", result.TotalChunks, len(result.Chunks))
	}
}

func TestGenerateEmptyChunksIsError(t *testing.T) {
	p := newTestProcessor(t)
	_, err := Generate(context.Background(), p, []byte(""), "doc.txt", nil, nil)
	if err == nil {
		t.Fatal("expected an error for a blob that produces no chunks")
	}
}

func TestGenerateAppliesOverrides(t *testing.T) {
	p := newTestProcessor(t)
	text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"

	result, err := Generate(context.Background(), p, []byte(text), "doc.txt", nil, map[string]any{
		"chunk_strategy": "characters",
		"chunk_size":     20,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.ChunkStrategy != "characters" {
		t.Errorf("ChunkStrategy = %q, want characters", result.ChunkStrategy)
	}
	if result.ChunkSize != 20 {
		t.Errorf("ChunkSize = %d, want 20", result.ChunkSize)
	}
}

func TestGenerateDoesNotPersist(t *testing.T) {
	// Generate takes no vectorstore.Store argument at all — the type
	// signature itself enforces "Preview MUST NOT write to the store"
	// (§4.8). This test documents that invariant.
	p := newTestProcessor(t)
	text := "A single short paragraph long enough to produce one chunk of content."
	if _, err := Generate(context.Background(), p, []byte(text), "doc.txt", nil, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

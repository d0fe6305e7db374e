package blobproc

import (
	"context"
	"strings"
	"testing"

	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/extractor"
	"github.com/ragdata-go/ragdata/ragerrors"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	chain, err := extractor.DefaultChain()
	if err != nil {
		t.Fatalf("extractor.DefaultChain: %v", err)
	}
	return NewProcessor(DefaultChain(), chain, chunker.Config{
		Strategy: chunker.StrategyParagraphs, ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 10, MaxChunkSize: 800,
	})
}

func TestProcessBlobStampsIdentity(t *testing.T) {
	p := newTestProcessor(t)
	text := strings.Repeat("Paragraph one has some words in it.\n\n", 3) +
		"Paragraph two follows after a blank line and is also reasonably long."

	chunks, err := p.ProcessBlob(context.Background(), []byte(text), "report.txt", nil)
	if err != nil {
		t.Fatalf("ProcessBlob: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if c.Metadata["chunk_index"] != i {
			t.Errorf("chunk %d: chunk_index = %v, want %d", i, c.Metadata["chunk_index"], i)
		}
		if c.Metadata["total_chunks"] != len(chunks) {
			t.Errorf("chunk %d: total_chunks = %v, want %d", i, c.Metadata["total_chunks"], len(chunks))
		}
		if c.Metadata["parser"] != "text" {
			t.Errorf("chunk %d: parser = %v, want text", i, c.Metadata["parser"])
		}
		if c.Metadata["file_hash"] == "" {
			t.Errorf("chunk %d: missing file_hash", i)
		}
	}
}

func TestProcessBlobUnsupportedFileType(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.ProcessBlob(context.Background(), []byte("data"), "archive.zip", nil)
	if err == nil {
		t.Fatal("expected an error for an unroutable extension")
	}
	if ragerrors.KindOf(err) != ragerrors.KindUnsupportedFileType {
		t.Errorf("KindOf(err) = %v, want KindUnsupportedFileType", ragerrors.KindOf(err))
	}
}

func TestProcessBlobDeterministicOnRepeat(t *testing.T) {
	p := newTestProcessor(t)
	text := "First paragraph with enough content to survive min size.\n\nSecond paragraph, also long enough to survive."

	first, err := p.ProcessBlob(context.Background(), []byte(text), "doc.txt", nil)
	if err != nil {
		t.Fatalf("ProcessBlob (1st): %v", err)
	}
	second, err := p.ProcessBlob(context.Background(), []byte(text), "doc.txt", nil)
	if err != nil {
		t.Fatalf("ProcessBlob (2nd): %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk count differs across identical calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d content differs across calls", i)
		}
		if first[i].Metadata["chunk_hash"] != second[i].Metadata["chunk_hash"] {
			t.Errorf("chunk %d chunk_hash differs across calls", i)
		}
		if first[i].Metadata["file_hash"] != second[i].Metadata["file_hash"] {
			t.Errorf("chunk %d file_hash differs across calls", i)
		}
	}
}

func TestProcessBlobChunkOverridesFromMetadata(t *testing.T) {
	p := newTestProcessor(t)
	text := strings.Repeat("word ", 400)

	chunks, err := p.ProcessBlob(context.Background(), []byte(text), "doc.txt", map[string]any{
		"chunk_strategy": "characters",
		"chunk_size":     50,
		"chunk_overlap":  5,
	})
	if err != nil {
		t.Fatalf("ProcessBlob: %v", err)
	}
	for _, c := range chunks {
		if c.Metadata["chunk_strategy"] != "characters" {
			t.Errorf("chunk_strategy = %v, want characters", c.Metadata["chunk_strategy"])
		}
	}
}

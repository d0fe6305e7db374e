package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/extractor"
	"github.com/ragdata-go/ragdata/vectorstore/memory"
)

type fakeSource struct {
	files map[string]struct {
		data     []byte
		filename string
	}
}

func (f fakeSource) Load(_ context.Context, fileHash string) ([]byte, string, map[string]any, error) {
	entry, ok := f.files[fileHash]
	if !ok {
		return nil, "", nil, errors.New("no such file_hash")
	}
	return entry.data, entry.filename, nil, nil
}

type fakeEmbedder struct {
	dim int
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = 1
		out[i] = vec
	}
	return out, nil
}

func newTestDriver(t *testing.T, source fakeSource) (*Driver, *memory.Store) {
	t.Helper()
	chain, err := extractor.DefaultChain()
	if err != nil {
		t.Fatalf("extractor.DefaultChain: %v", err)
	}
	processor := blobproc.NewProcessor(blobproc.DefaultChain(), chain, chunker.Config{
		Strategy: chunker.StrategyParagraphs, ChunkSize: 200, ChunkOverlap: 10, MinChunkSize: 5, MaxChunkSize: 800,
	})
	store := memory.New()
	return &Driver{
		Processor:            processor,
		Store:                store,
		Embedder:             fakeEmbedder{dim: 4},
		Source:                source,
		DeleteBeforeReingest: true,
	}, store
}

func TestDriverRunStoresAcceptedFiles(t *testing.T) {
	source := fakeSource{files: map[string]struct {
		data     []byte
		filename string
	}{
		"hash1": {data: []byte("A reasonably long paragraph of plain text content for ingestion."), filename: "a.txt"},
		"hash2": {data: []byte("Another reasonably long paragraph for the second document here."), filename: "b.txt"},
	}}
	driver, store := newTestDriver(t, source)

	result, err := driver.Run(context.Background(), []string{"hash1", "hash2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.StoredCount != 2 {
		t.Fatalf("StoredCount = %d, want 2", result.StoredCount)
	}
	if len(result.FailedFiles) != 0 {
		t.Fatalf("FailedFiles = %+v, want none", result.FailedFiles)
	}
	_, total, err := store.ListDocuments(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != result.StoredChunks {
		t.Errorf("store has %d chunks, want %d", total, result.StoredChunks)
	}
}

func TestDriverRunSkipsUnsupportedFileType(t *testing.T) {
	source := fakeSource{files: map[string]struct {
		data     []byte
		filename string
	}{
		"hash1": {data: []byte("data"), filename: "archive.zip"},
	}}
	driver, _ := newTestDriver(t, source)

	result, err := driver.Run(context.Background(), []string{"hash1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.SkippedFiles) != 1 {
		t.Fatalf("SkippedFiles = %+v, want 1 entry", result.SkippedFiles)
	}
	if result.StoredCount != 0 {
		t.Errorf("StoredCount = %d, want 0", result.StoredCount)
	}
}

func TestDriverRunErrorsOnMissingSource(t *testing.T) {
	driver, _ := newTestDriver(t, fakeSource{files: map[string]struct {
		data     []byte
		filename string
	}{}})

	result, err := driver.Run(context.Background(), []string{"missing"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.FailedFiles) != 1 {
		t.Fatalf("FailedFiles = %+v, want 1 entry", result.FailedFiles)
	}
}

func TestDriverRunDeletesBeforeReingest(t *testing.T) {
	source := fakeSource{files: map[string]struct {
		data     []byte
		filename string
	}{
		"hash1": {data: []byte("A reasonably long paragraph of plain text content for ingestion."), filename: "a.txt"},
	}}
	driver, store := newTestDriver(t, source)

	if _, err := driver.Run(context.Background(), []string{"hash1"}); err != nil {
		t.Fatalf("Run (1st): %v", err)
	}
	_, firstTotal, _ := store.ListDocuments(context.Background(), 0, 0, false)

	if _, err := driver.Run(context.Background(), []string{"hash1"}); err != nil {
		t.Fatalf("Run (2nd): %v", err)
	}
	_, secondTotal, _ := store.ListDocuments(context.Background(), 0, 0, false)

	if secondTotal != firstTotal {
		t.Errorf("re-ingesting the same file_hash grew the store from %d to %d chunks; want identical (delete-then-reingest)", firstTotal, secondTotal)
	}
}

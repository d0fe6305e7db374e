//go:build cgo

package sqlitevec

import (
	"context"
	"testing"

	"github.com/ragdata-go/ragdata/vectorstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "testdb", 4)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddDocumentsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []vectorstore.Chunk{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0, 0}},
		{ID: "b", Content: "beta", Embedding: []float32{0, 1, 0, 0}},
	}

	inserted, err := s.AddDocuments(ctx, chunks)
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if len(inserted) != 2 {
		t.Fatalf("expected 2 inserted, got %d", len(inserted))
	}

	inserted, err = s.AddDocuments(ctx, chunks)
	if err != nil {
		t.Fatalf("AddDocuments (repeat): %v", err)
	}
	if len(inserted) != 0 {
		t.Fatalf("expected 0 inserted on repeat, got %d", len(inserted))
	}

	_, total, err := s.ListDocuments(ctx, 0, 0, false)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total=2, got %d", total)
	}
}

func TestSearchOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddDocuments(ctx, []vectorstore.Chunk{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0, 0}},
		{ID: "b", Content: "beta", Embedding: []float32{0, 1, 0, 0}},
		{ID: "c", Content: "gamma", Embedding: []float32{0.9, 0.1, 0, 0}},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Errorf("expected descending scores, got %v then %v", results[0].Score, results[1].Score)
	}
	if results[0].Chunk.ID != "a" {
		t.Errorf("expected closest match 'a', got %q", results[0].Chunk.ID)
	}
}

func TestDeleteByFileHashFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddDocuments(ctx, []vectorstore.Chunk{
		{ID: "a1", Content: "a chunk 1", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"file_hash": "hashA"}},
		{ID: "a2", Content: "a chunk 2", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"file_hash": "hashA"}},
		{ID: "b1", Content: "b chunk 1", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"file_hash": "hashB"}},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	matches, err := s.GetDocumentsByMetadata(ctx, vectorstore.MetadataFilter{"file_hash": "hashA"})
	if err != nil {
		t.Fatalf("GetDocumentsByMetadata: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches for hashA, got %d", len(matches))
	}

	ids := make([]string, len(matches))
	for i, c := range matches {
		ids[i] = c.ID
	}
	deleted, err := s.DeleteDocuments(ctx, ids)
	if err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	remaining, total, err := s.ListDocuments(ctx, 0, 0, true)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 1 || remaining[0].ID != "b1" {
		t.Fatalf("expected only b1 remaining, got total=%d remaining=%v", total, remaining)
	}

	deleted, err = s.DeleteDocuments(ctx, ids)
	if err != nil {
		t.Fatalf("DeleteDocuments (repeat): %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected idempotent repeat delete to return 0, got %d", deleted)
	}
}

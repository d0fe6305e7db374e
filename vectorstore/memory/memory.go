// Package memory provides an in-memory vectorstore.Store used as a
// test double, hand-rolled rather than pulling in a mocking
// framework.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ragdata-go/ragdata/vectorstore"
)

type Store struct {
	mu     sync.RWMutex
	chunks map[string]vectorstore.Chunk
	order  []string
}

func New() *Store {
	return &Store{chunks: make(map[string]vectorstore.Chunk)}
}

func (s *Store) AddDocuments(_ context.Context, chunks []vectorstore.Chunk) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []string
	for _, c := range chunks {
		if _, exists := s.chunks[c.ID]; exists {
			continue
		}
		s.chunks[c.ID] = c.Clone()
		s.order = append(s.order, c.ID)
		inserted = append(inserted, c.ID)
	}
	return inserted, nil
}

func (s *Store) Search(_ context.Context, queryEmbedding []float32, topK int, filter vectorstore.MetadataFilter) ([]vectorstore.Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []vectorstore.Scored
	for _, id := range s.order {
		c := s.chunks[id]
		if !matchFilter(c.Metadata, filter) {
			continue
		}
		scored = append(scored, vectorstore.Scored{Chunk: c.Clone(), Score: cosineSimilarity(queryEmbedding, c.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *Store) GetDocumentsByMetadata(_ context.Context, filter vectorstore.MetadataFilter) ([]vectorstore.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vectorstore.Chunk
	for _, id := range s.order {
		c := s.chunks[id]
		if matchFilter(c.Metadata, filter) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *Store) DeleteDocuments(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	deleted := 0
	kept := s.order[:0:0]
	for _, id := range s.order {
		if _, ok := want[id]; ok {
			if _, exists := s.chunks[id]; exists {
				delete(s.chunks, id)
				deleted++
				continue
			}
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

func (s *Store) DeleteCollection(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]vectorstore.Chunk)
	s.order = nil
	return true, nil
}

func (s *Store) ListDocuments(_ context.Context, limit, offset int, includeContent bool) ([]vectorstore.Chunk, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]vectorstore.Chunk, 0, end-offset)
	for _, id := range s.order[offset:end] {
		c := s.chunks[id].Clone()
		if !includeContent {
			c.Content = ""
		}
		out = append(out, c)
	}
	return out, total, nil
}

func (s *Store) Close() error { return nil }

func matchFilter(metadata map[string]any, filter vectorstore.MetadataFilter) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

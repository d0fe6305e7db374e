// Package vectorstore defines the C6 Vector Store Abstraction: the
// uniform contract every concrete backend (sqlitevec, qdrant, the
// in-memory test double) implements.
package vectorstore

import "context"

// Chunk is the unit of storage and retrieval (§3). Embedding is absent
// (nil) until the caller has computed it.
type Chunk struct {
	ID        string
	Content   string
	Source    string
	Embedding []float32
	Metadata  map[string]any
}

// Clone returns a deep-enough copy of c: a new Metadata map and
// Embedding slice, so callers can mutate the copy without aliasing the
// stored chunk.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.Embedding != nil {
		out.Embedding = append([]float32(nil), c.Embedding...)
	}
	return out
}

// Scored pairs a chunk with its similarity score. Score semantics are
// backend-specific (cosine in [-1,1] or provider-native); only
// descending order is guaranteed.
type Scored struct {
	Chunk Chunk
	Score float64
}

// MetadataFilter is an exact-equality match against every key present
// in the map (§4.6 get_documents_by_metadata).
type MetadataFilter map[string]any

// Store is the C6 contract. Every method may fail with a
// *ragerrors.StoreError.
type Store interface {
	// AddDocuments inserts only chunks whose ID is not already
	// present; duplicates are silently skipped. Returns the IDs
	// actually inserted. All-or-nothing within a single call per the
	// resolved Open Question in §9: either every not-yet-present
	// chunk is written, or none are (on error), never a partial
	// subset.
	AddDocuments(ctx context.Context, chunks []Chunk) ([]string, error)

	// Search returns up to topK chunks ordered by descending
	// similarity score, optionally narrowed by an exact-match
	// metadata filter.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter MetadataFilter) ([]Scored, error)

	// GetDocumentsByMetadata returns every chunk whose metadata
	// matches filter by exact equality on every key.
	GetDocumentsByMetadata(ctx context.Context, filter MetadataFilter) ([]Chunk, error)

	// DeleteDocuments removes the given chunk IDs and returns the
	// count actually deleted.
	DeleteDocuments(ctx context.Context, ids []string) (int, error)

	// DeleteCollection destroys the entire collection (used when a
	// database configuration is removed).
	DeleteCollection(ctx context.Context) (bool, error)

	// ListDocuments returns a page of chunks plus the total count.
	// IncludeContent controls whether Content is populated (listing
	// metadata-only is cheaper for large collections).
	ListDocuments(ctx context.Context, limit, offset int, includeContent bool) ([]Chunk, int, error)

	// Close releases backend resources (connections, file handles).
	Close() error
}

package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/ragdata-go/ragdata/vectorstore"
)

// Identity carries the per-document context needed to stamp a freshly
// produced chunk: everything C4 cannot derive from the chunk's content
// alone.
type Identity struct {
	DocID         string
	Filename      string
	Filepath      string
	FileHash      string
	FileSize      int64
	ChunkIndex    int
	TotalChunks   int
	ChunkStrategy string
	Parser        string
	DefaultTTL    time.Duration // zero means no expiry
}

// Stamp assigns identity fields, hashes, and UTC ISO-8601 timestamps to
// chunk in place, per §4.4. version is always 1 and is_active always
// true: Stamp is only ever called on newly produced chunks, never on an
// update-in-place (the data model has no such operation — updates are
// delete + reingest, see §3 Lifecycles).
func Stamp(chunk *vectorstore.Chunk, id Identity) {
	if chunk.Metadata == nil {
		chunk.Metadata = make(map[string]any)
	}
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}

	now := time.Now().UTC().Format(time.RFC3339)

	chunk.Metadata["file_hash"] = id.FileHash
	chunk.Metadata["chunk_hash"] = ChunkHash(chunk.Content)
	chunk.Metadata["doc_id"] = id.DocID
	chunk.Metadata["chunk_id"] = chunk.ID
	chunk.Metadata["filename"] = id.Filename
	chunk.Metadata["filepath"] = id.Filepath
	chunk.Metadata["created_at"] = now
	chunk.Metadata["updated_at"] = now
	chunk.Metadata["indexed_at"] = now
	chunk.Metadata["version"] = 1
	chunk.Metadata["is_active"] = true
	chunk.Metadata["chunk_index"] = id.ChunkIndex
	chunk.Metadata["total_chunks"] = id.TotalChunks
	chunk.Metadata["chunk_strategy"] = id.ChunkStrategy
	chunk.Metadata["parser"] = id.Parser
	chunk.Metadata["file_size"] = id.FileSize

	if id.DefaultTTL > 0 {
		chunk.Metadata["expires_at"] = time.Now().UTC().Add(id.DefaultTTL).Format(time.RFC3339)
	}

	// metadata_hash covers everything stamped above (and any
	// extractor-added keys already merged in by the caller), excluding
	// the timestamp fields and itself.
	chunk.Metadata["metadata_hash"] = MetadataHash(chunk.Metadata)
}

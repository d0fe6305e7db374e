// Package lifecycle implements the Document Lifecycle Manager (hashing,
// identity stamping, and deletion-by-file-hash), generalized from a
// single SHA-256-of-whole-file helper into the three content-addressed
// hashes ingestion needs and extended to a streaming 8 KiB block read.
package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"
	"strings"
)

const fileHashBlockSize = 8 * 1024

// HashAlgorithm is prefixed onto every persisted hash so the store can
// migrate algorithms later without ambiguity (§4.4).
const HashAlgorithm = "sha256"

// HashFile streams r in 8 KiB blocks and returns its content hash in
// "sha256:<hex>" form.
func HashFile(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, fileHashBlockSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return formatHash(h.Sum(nil)), nil
}

// HashBytes hashes an in-memory byte slice with the same algorithm as
// HashFile, for callers that already hold the full file in memory.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return formatHash(sum[:])
}

// NormalizeContent applies the chunk_hash normalisation rule: trim,
// lowercase, whitespace-collapse (§4.4, Invariant 4).
func NormalizeContent(content string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(content)))
	return strings.Join(fields, " ")
}

// ChunkHash hashes the normalised chunk content. Two contents with the
// same normalised form always produce the same hash, and only those two
// (Invariant 4 in §8).
func ChunkHash(content string) string {
	return HashBytes([]byte(NormalizeContent(content)))
}

// excludedMetadataKeys are timestamps and the hash field itself, which
// would make metadata_hash depend on when it was computed or on its own
// prior value.
var excludedMetadataKeys = map[string]struct{}{
	"created_at":    {},
	"updated_at":    {},
	"indexed_at":    {},
	"metadata_hash": {},
}

// MetadataHash hashes metadata serialised with sorted keys, excluding
// created_at/updated_at/indexed_at/metadata_hash (§4.4).
func MetadataHash(metadata map[string]any) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if _, excluded := excludedMetadataKeys[k]; excluded {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, metadata[k])
	}
	// json.Marshal of a slice preserves this insertion order, giving a
	// deterministic serialisation independent of map iteration order.
	b, err := json.Marshal(ordered)
	if err != nil {
		// metadata values are restricted to string|number|boolean by
		// the data model, so Marshal cannot fail in practice; treat a
		// failure as an empty-metadata hash rather than panicking.
		b = []byte("[]")
	}
	return HashBytes(b)
}

func formatHash(sum []byte) string {
	return HashAlgorithm + ":" + hex.EncodeToString(sum)
}

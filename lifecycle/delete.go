package lifecycle

import (
	"context"

	"github.com/ragdata-go/ragdata/vectorstore"
)

// DeleteByFileHash removes every chunk carrying the given file_hash
// from store, per §4.4: look the ids up by metadata, then delete them.
// Idempotent — a file_hash with no live chunks deletes 0 with no error.
func DeleteByFileHash(ctx context.Context, store vectorstore.Store, fileHash string) (int, error) {
	chunks, err := store.GetDocumentsByMetadata(ctx, vectorstore.MetadataFilter{"file_hash": fileHash})
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return store.DeleteDocuments(ctx, ids)
}

// ClearResult reports the outcome of clearing every file in a dataset's
// store, per the delete_dataset_chunks Core API contract (§6.6).
type ClearResult struct {
	TotalDeletedChunks int `json:"total_deleted_chunks"`
	TotalFilesCleared  int `json:"total_files_cleared"`
	TotalFilesFailed   int `json:"total_files_failed"`
}

// ClearDataset deletes every chunk in store, file by file, so the
// result can report per-file success/failure the way DeleteCollection's
// single pass cannot. It lists the store's full content once, groups
// chunk ids by file_hash, and issues one DeleteDocuments call per file.
func ClearDataset(ctx context.Context, store vectorstore.Store) (*ClearResult, error) {
	chunks, _, err := store.ListDocuments(ctx, 0, 0, false)
	if err != nil {
		return nil, err
	}

	byFile := make(map[string][]string)
	var order []string
	for _, c := range chunks {
		hash, _ := c.Metadata["file_hash"].(string)
		if _, seen := byFile[hash]; !seen {
			order = append(order, hash)
		}
		byFile[hash] = append(byFile[hash], c.ID)
	}

	result := &ClearResult{}
	for _, hash := range order {
		ids := byFile[hash]
		deleted, err := store.DeleteDocuments(ctx, ids)
		if err != nil {
			result.TotalFilesFailed++
			continue
		}
		result.TotalDeletedChunks += deleted
		result.TotalFilesCleared++
	}
	return result, nil
}

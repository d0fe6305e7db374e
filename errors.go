package ragdata

import "errors"

// Sentinel errors for Core API argument validation; per-operation
// failures (unknown dataset, unknown model, ...) use the typed
// ragerrors kinds instead, since those need to carry structured detail
// across the wire (§6.7).
var (
	// ErrEmptyFileHashes is returned when Ingest is called with no
	// file hashes and the dataset is not configured for auto_process.
	ErrEmptyFileHashes = errors.New("ragdata: no file hashes given and dataset does not auto_process")

	// ErrNoFileContent is returned when Preview is called with neither
	// a file_hash nor inline file content.
	ErrNoFileContent = errors.New("ragdata: preview requires either a file_hash or file_content+filename")

	// ErrQueueRequired is returned when Ingest is called on a Client
	// with no TaskQueue configured.
	ErrQueueRequired = errors.New("ragdata: ingest requires a configured task queue")
)

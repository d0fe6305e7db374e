// Package ingest implements the Ingestion Driver (C9): the per-dataset
// batch loop that runs every file_hash in a dataset through the Blob
// Processor (C5), embeds the accepted chunks, and persists them to a
// vector store (§4.9).
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/lifecycle"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// Embedder computes vector embeddings for text in batches.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Source loads a file's bytes given its file_hash, and reports the
// filename the bytes were ingested under — the driver has no opinion
// on where blobs physically live (local disk, object storage, ...).
type Source interface {
	Load(ctx context.Context, fileHash string) (data []byte, filename string, metadata map[string]any, err error)
}

// maxEmbedChars bounds a single embed request, leaving headroom
// across tokenizers with a different token/char ratio than English.
const maxEmbedChars = 24000

// embedBatchSize bounds how many chunks are embedded per call to
// Embedder.Embed.
const embedBatchSize = 32

// SkippedFile records a file_hash the driver declined to ingest
// because no parser matched it.
type SkippedFile struct {
	FileHash string
	Reason   string
}

// FailedFile records a file_hash that errored during processing,
// embedding, or storage.
type FailedFile struct {
	FileHash string
	Err      error
}

// ProcessingResult is the driver's per-batch report (§4.9 step 5).
type ProcessingResult struct {
	StoredCount   int
	StoredChunks  int
	SkippedFiles  []SkippedFile
	FailedFiles   []FailedFile
	TotalChunks   int
	TotalDocuments int
}

// Driver runs the C9 per-dataset batch ingestion loop.
type Driver struct {
	Processor *blobproc.Processor
	Store     vectorstore.Store
	Embedder  Embedder
	Source    Source
	// DeleteBeforeReingest controls whether a file_hash with existing
	// live chunks is deleted before its new chunks are added. Default
	// policy per §4.9 is "delete then reingest"; set false to disable.
	DeleteBeforeReingest bool
}

// Run ingests every file_hash in hashes, accumulating a single
// ProcessingResult across the whole batch (§4.9).
func (d *Driver) Run(ctx context.Context, hashes []string) (*ProcessingResult, error) {
	start := time.Now()
	result := &ProcessingResult{}
	defer observeResult(start, result)

	for _, fileHash := range hashes {
		data, filename, metadata, err := d.Source.Load(ctx, fileHash)
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileHash: fileHash, Err: err})
			continue
		}

		chunks, err := d.Processor.ProcessBlob(ctx, data, filename, metadata)
		if err != nil {
			switch ragerrors.KindOf(err) {
			case ragerrors.KindUnsupportedFileType:
				result.SkippedFiles = append(result.SkippedFiles, SkippedFile{FileHash: fileHash, Reason: err.Error()})
			default:
				// ParserFailed, StoreError, and anything else are all
				// treated as errors per §4.9 step 2.
				result.FailedFiles = append(result.FailedFiles, FailedFile{FileHash: fileHash, Err: err})
			}
			continue
		}

		if d.DeleteBeforeReingest {
			if _, err := lifecycle.DeleteByFileHash(ctx, d.Store, fileHash); err != nil {
				result.FailedFiles = append(result.FailedFiles, FailedFile{FileHash: fileHash, Err: err})
				continue
			}
		}

		if err := d.embedChunks(ctx, chunks); err != nil {
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileHash: fileHash, Err: err})
			continue
		}

		inserted, err := d.Store.AddDocuments(ctx, chunks)
		if err != nil {
			result.FailedFiles = append(result.FailedFiles, FailedFile{FileHash: fileHash, Err: &ragerrors.StoreError{Op: "add_documents", Err: err}})
			continue
		}

		result.StoredCount++
		result.StoredChunks += len(inserted)
		result.TotalChunks += len(chunks)
		result.TotalDocuments++
	}

	return result, nil
}

// embedChunks fills in each chunk's Embedding in batches, falling back
// to per-chunk embedding when a batch fails so one oversized text
// doesn't lose the whole batch.
func (d *Driver) embedChunks(ctx context.Context, chunks []vectorstore.Chunk) error {
	failed := 0
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = truncateForEmbed(chunks[j].Content)
		}

		embeddings, err := d.Embedder.Embed(ctx, texts)
		if err != nil {
			slog.Warn("ingest: embedding batch failed, falling back to individual", "batch_start", i, "batch_end", end, "error", err)
			for j, text := range texts {
				single, serr := d.Embedder.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 || len(single[0]) == 0 {
					slog.Warn("ingest: embedding single chunk failed", "chunk_id", chunks[i+j].ID, "error", serr)
					failed++
					continue
				}
				chunks[i+j].Embedding = single[0]
			}
			continue
		}

		for j, emb := range embeddings {
			chunks[i+j].Embedding = emb
		}
	}

	if failed == len(chunks) && len(chunks) > 0 {
		return fmt.Errorf("all %d chunks failed embedding", len(chunks))
	}
	if failed > 0 {
		slog.Warn("ingest: some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}

// truncateForEmbed truncates text to maxEmbedChars on a word boundary.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := strings.LastIndex(text[:maxEmbedChars], " ")
	if cut <= 0 {
		cut = maxEmbedChars
	}
	return text[:cut]
}

// Package preview implements the Preview Handler (C8): an
// ingestion-dry-run that reuses the Blob Processor (C5) without ever
// persisting to a vector store, returning chunks plus per-chunk
// character positions in the reconstructed original text (§4.8).
package preview

import (
	"context"
	"strconv"
	"strings"

	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/ragerrors"
)

// FileInfo describes the blob a preview was generated from.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// ChunkPreview is one chunk plus its position in OriginalText.
// Start/End are byte offsets such that
// OriginalText[Start:End] == Content whenever the chunk was located
// (Start == -1 and End == -1 when substring search failed to find it,
// e.g. because a parser inserted synthetic content such as
// "--- Page 1 ---" that does not appear verbatim in OriginalText).
type ChunkPreview struct {
	Index     int            `json:"index"`
	Content   string         `json:"content"`
	Start     int            `json:"start"`
	End       int            `json:"end"`
	CharCount int            `json:"char_count"`
	WordCount int            `json:"word_count"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result is the full PreviewResult §4.8 step 5 describes.
type Result struct {
	OriginalText          string         `json:"original_text"`
	Chunks                []ChunkPreview `json:"chunks"`
	FileInfo              FileInfo       `json:"file_info"`
	ParserUsed            string         `json:"parser_used"`
	ChunkStrategy         string         `json:"chunk_strategy"`
	ChunkSize             int            `json:"chunk_size"`
	ChunkOverlap          int            `json:"chunk_overlap"`
	TotalChunks           int            `json:"total_chunks"`
	AvgChunkSize          float64        `json:"avg_chunk_size"`
	TotalSizeWithOverlaps int            `json:"total_size_with_overlaps"`
	Warnings              []string       `json:"warnings,omitempty"`
}

// Generate implements generate_preview(bytes, metadata, overrides?) ->
// PreviewResult (§4.8). overrides (chunk_size, chunk_overlap,
// chunk_strategy) are merged into metadata before the blob is run
// through the same Processor path ingestion uses; nothing is written
// to any store.
func Generate(ctx context.Context, processor *blobproc.Processor, data []byte, filename string, metadata map[string]any, overrides map[string]any) (*Result, error) {
	merged := mergeOverrides(metadata, overrides)

	detailed, err := processor.ProcessBlobDetailed(ctx, data, filename, merged)
	if err != nil {
		return nil, err
	}
	if len(detailed.Chunks) == 0 {
		return nil, &ragerrors.InvalidArgument{Parameter: "chunks", Reason: "processing produced no chunks to preview"}
	}

	cursor := 0
	var warnings []string
	totalSize := 0
	previews := make([]ChunkPreview, len(detailed.Chunks))
	for i, c := range detailed.Chunks {
		start, end := locate(detailed.FullText, c.Content, cursor)
		if start >= 0 {
			cursor = end
		} else {
			warnings = append(warnings, "chunk "+strconv.Itoa(i)+": position not found in reconstructed text")
		}
		totalSize += len(c.Content)
		previews[i] = ChunkPreview{
			Index:     i,
			Content:   c.Content,
			Start:     start,
			End:       end,
			CharCount: len([]rune(c.Content)),
			WordCount: len(strings.Fields(c.Content)),
			Metadata:  c.Metadata,
		}
	}

	avg := float64(totalSize) / float64(len(detailed.Chunks))

	return &Result{
		OriginalText:          detailed.FullText,
		Chunks:                previews,
		FileInfo:              FileInfo{Filename: filename, Size: int64(len(data))},
		ParserUsed:            detailed.ParserName,
		ChunkStrategy:         string(detailed.ChunkConfig.Strategy),
		ChunkSize:             detailed.ChunkConfig.ChunkSize,
		ChunkOverlap:          detailed.ChunkConfig.ChunkOverlap,
		TotalChunks:           len(detailed.Chunks),
		AvgChunkSize:          avg,
		TotalSizeWithOverlaps: totalSize,
		Warnings:              warnings,
	}, nil
}

// locate finds content in text starting the search at cursor,
// implementing §4.8 step 4's "substring search, advancing a cursor
// after each match" rule. Returns (-1, -1) when not found.
func locate(text, content string, cursor int) (int, int) {
	if cursor > len(text) {
		cursor = len(text)
	}
	idx := strings.Index(text[cursor:], content)
	if idx < 0 {
		return -1, -1
	}
	start := cursor + idx
	return start, start + len(content)
}

// mergeOverrides merges overrides (chunk_size, chunk_overlap,
// chunk_strategy) into a copy of metadata per §4.8 step 1, without
// mutating the caller's map.
func mergeOverrides(metadata, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(metadata)+len(overrides))
	for k, v := range metadata {
		merged[k] = v
	}
	for _, key := range []string{"chunk_size", "chunk_overlap", "chunk_strategy"} {
		if v, ok := overrides[key]; ok {
			merged[key] = v
		}
	}
	return merged
}

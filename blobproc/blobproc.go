package blobproc

import (
	"context"
	"strings"

	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/extractor"
	"github.com/ragdata-go/ragdata/lifecycle"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// Processor is the Blob Processor (C5): the single entry point for both
// ingestion and preview, running ParserChain(C1) -> Chunker(C2) ->
// ExtractorChain(C3) -> LifecycleManager(C4) over one file's bytes.
type Processor struct {
	Parsers     *Chain
	Extractors  *extractor.Chain
	ChunkConfig chunker.Config
}

// NewProcessor wires the three chained components behind a single
// process_blob call.
func NewProcessor(parsers *Chain, extractors *extractor.Chain, chunkConfig chunker.Config) *Processor {
	return &Processor{Parsers: parsers, Extractors: extractors, ChunkConfig: chunkConfig}
}

// ProcessBlob implements §4.5: route via C1, chunk each fragment via
// C2, run the extractor chain via C3, stamp identity via C4, and return
// the resulting chunks for the caller to persist. Never returns a
// generic error for "no parser matches" — that surfaces as the typed
// ragerrors.UnsupportedFileType from the chain, which Ingestion Driver
// (C9) distinguishes from fatal errors.
func (p *Processor) ProcessBlob(ctx context.Context, data []byte, filename string, metadata map[string]any) ([]vectorstore.Chunk, error) {
	result, err := p.processBlob(ctx, data, filename, metadata)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}

// Result is the full output of a C5 run, including the reconstructed
// full text and chunking configuration Preview Handler (C8) needs
// alongside the stamped chunks themselves.
type Result struct {
	Chunks     []vectorstore.Chunk
	FullText   string
	ParserName string
	ChunkConfig chunker.Config
}

// ProcessBlobDetailed runs the same §4.5 pipeline as ProcessBlob but
// additionally returns the reconstructed full text and the chunking
// configuration actually used — the extra detail Preview Handler (C8)
// needs to compute per-chunk character positions (§4.8 steps 3-4).
func (p *Processor) ProcessBlobDetailed(ctx context.Context, data []byte, filename string, metadata map[string]any) (*Result, error) {
	return p.processBlob(ctx, data, filename, metadata)
}

func (p *Processor) processBlob(ctx context.Context, data []byte, filename string, metadata map[string]any) (*Result, error) {
	doc, err := p.Parsers.Route(ctx, data, filename, metadata)
	if err != nil {
		return nil, err
	}

	cfg := effectiveConfig(p.ChunkConfig, metadata)
	fileHash := lifecycle.HashBytes(data)

	var fullText strings.Builder
	var extracted []extractor.Chunk
	for _, frag := range doc.Fragments {
		if fullText.Len() > 0 {
			fullText.WriteString("\n\n")
		}
		fullText.WriteString(frag.Text)

		pieces, err := chunker.Chunk(frag.Text, cfg)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			extracted = append(extracted, extractor.Chunk{
				Content:  piece,
				Metadata: cloneMetadata(frag.Metadata),
			})
		}
	}

	if p.Extractors != nil {
		p.Extractors.Run(filename, extracted)
	}

	filepathVal, _ := metadata["filepath"].(string)
	if filepathVal == "" {
		filepathVal = filename
	}

	total := len(extracted)
	chunks := make([]vectorstore.Chunk, total)
	for i, ec := range extracted {
		chunk := vectorstore.Chunk{
			Content:  ec.Content,
			Source:   filename,
			Metadata: ec.Metadata,
		}
		lifecycle.Stamp(&chunk, lifecycle.Identity{
			DocID:         fileHash,
			Filename:      filename,
			Filepath:      filepathVal,
			FileHash:      fileHash,
			FileSize:      int64(len(data)),
			ChunkIndex:    i,
			TotalChunks:   total,
			ChunkStrategy: string(cfg.Strategy),
			Parser:        doc.ParserName,
		})
		chunks[i] = chunk
	}
	return &Result{Chunks: chunks, FullText: fullText.String(), ParserName: doc.ParserName, ChunkConfig: cfg}, nil
}

// effectiveConfig applies per-call overrides (chunk_size,
// chunk_overlap, chunk_strategy, min/max_chunk_size) found in metadata
// on top of the processor's base chunker.Config, the mechanism Preview
// Handler (C8) uses to try alternate chunking without mutating stored
// configuration.
func effectiveConfig(base chunker.Config, metadata map[string]any) chunker.Config {
	cfg := base
	if v, ok := metadata["chunk_strategy"].(string); ok && v != "" {
		cfg.Strategy = chunker.Strategy(v)
	}
	if v, ok := intFromAny(metadata["chunk_size"]); ok {
		cfg.ChunkSize = v
	}
	if v, ok := intFromAny(metadata["chunk_overlap"]); ok {
		cfg.ChunkOverlap = v
	}
	if v, ok := intFromAny(metadata["min_chunk_size"]); ok {
		cfg.MinChunkSize = v
	}
	if v, ok := intFromAny(metadata["max_chunk_size"]); ok {
		cfg.MaxChunkSize = v
	}
	return cfg
}

func intFromAny(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

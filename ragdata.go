// Package ragdata is the composition root: it wires the Parser
// Registry (C1), Chunker (C2), Extractor Chain (C3), Document
// Lifecycle Manager (C4), Blob Processor (C5), Vector Store
// Abstraction (C6), Retrieval Strategy Family (C7), Preview Handler
// (C8), Ingestion Driver (C9), and Strategy & Configuration Resolver
// (C10) into the five Core API operations (§6.6): Ingest, Preview,
// DeleteFileChunks, DeleteDatasetChunks, Search — in the same
// Engine-interface, New(cfg)-constructor, functional-options shape as a
// single global graph-reasoning engine, generalized here to a
// multi-dataset, multi-strategy RAG data plane.
package ragdata

import (
	"context"
	"fmt"

	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/extractor"
	"github.com/ragdata-go/ragdata/ingest"
	"github.com/ragdata-go/ragdata/lifecycle"
	"github.com/ragdata-go/ragdata/preview"
	"github.com/ragdata-go/ragdata/ragconfig"
	"github.com/ragdata-go/ragdata/retrieval"
	"github.com/ragdata-go/ragdata/taskqueue"
	"github.com/ragdata-go/ragdata/vectorstore"
)

// Embedder computes vector embeddings for text. Shared by ingestion
// (embedding new chunks) and search (embedding the query) — the
// module's one externally-supplied embedding collaborator (§6.2).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is the Core API entry point for one configuration Record.
type Client struct {
	Resolver *ragconfig.Resolver
	Source   ingest.Source
	Embedder Embedder
	Queue    taskqueue.Queue
	// ParserOptions enables the optional legacy-format (LlamaParse) and
	// vision-escalated PDF parsers. Zero value runs with both disabled.
	ParserOptions blobproc.Options
}

// New builds a Client over a configuration record. source and embedder
// are the caller's external collaborators (§1): source resolves a
// file_hash to bytes, embedder computes embeddings. queue may be nil
// if the caller only intends to use Preview/Search/Delete — Ingest
// requires one.
func New(record ragconfig.Record, source ingest.Source, embedder Embedder, queue taskqueue.Queue) *Client {
	return &Client{
		Resolver: ragconfig.New(record),
		Source:   source,
		Embedder: embedder,
		Queue:    queue,
	}
}

// SearchResult is one ranked hit returned by Search (§6.6).
type SearchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Source   string         `json:"source,omitempty"`
}

// Ingest enqueues an asynchronous ingestion task for a dataset and
// returns its task_id immediately (§6.6). The task itself runs
// through Handler, invoked by whatever Queue implementation the
// Client was built with.
func (c *Client) Ingest(ctx context.Context, dataset string, fileHashes []string, parserOverrides map[string]any) (taskqueue.TaskID, error) {
	if c.Queue == nil {
		return "", ErrQueueRequired
	}
	ds, err := c.Resolver.Dataset(dataset)
	if err != nil {
		return "", err
	}
	if len(fileHashes) == 0 && !ds.AutoProcess {
		return "", ErrEmptyFileHashes
	}
	return c.Queue.Enqueue(ctx, taskqueue.IngestTask{
		Dataset:         dataset,
		FileHashes:      fileHashes,
		ParserOverrides: parserOverrides,
	})
}

// Handler runs one enqueued IngestTask to completion, wiring C1–C6 and
// C9 for the task's dataset. Passed to a taskqueue.Queue implementation
// (e.g. taskqueue.NewMemory(client.Handler)) as the work a popped task
// performs.
func (c *Client) Handler(ctx context.Context, task taskqueue.IngestTask) error {
	wired, err := c.Resolver.Wire(ctx, task.Dataset)
	if err != nil {
		return err
	}

	processor, err := c.newProcessor(wired.ChunkConfig, task.ParserOverrides)
	if err != nil {
		return err
	}

	driver := &ingest.Driver{
		Processor:            processor,
		Store:                wired.Store,
		Embedder:             c.Embedder,
		Source:               c.Source,
		DeleteBeforeReingest: true,
	}

	result, err := driver.Run(ctx, task.FileHashes)
	if err != nil {
		return err
	}
	if len(result.FailedFiles) > 0 && result.StoredCount == 0 {
		return fmt.Errorf("ingest: all %d files failed", len(result.FailedFiles))
	}
	return nil
}

// Preview runs a file through the same parse/extract/chunk pipeline
// Ingest would use, without ever writing to a store (§4.8, §6.6).
// fileContent+filename are used when given; otherwise fileHash is
// loaded through Source the same way Ingest would.
func (c *Client) Preview(ctx context.Context, database, dataProcessingStrategy, fileHash string, fileContent []byte, filename string, metadata, overrides map[string]any) (*preview.Result, error) {
	data := fileContent
	name := filename
	if len(data) == 0 {
		if fileHash == "" {
			return nil, ErrNoFileContent
		}
		var err error
		data, name, metadata, err = c.Source.Load(ctx, fileHash)
		if err != nil {
			return nil, err
		}
	}

	chunkCfg, err := c.Resolver.ChunkConfig(dataProcessingStrategy)
	if err != nil {
		return nil, err
	}
	processor, err := c.newProcessor(chunkCfg, nil)
	if err != nil {
		return nil, err
	}

	return preview.Generate(ctx, processor, data, name, metadata, overrides)
}

// DeleteFileChunks removes every chunk for one file from a dataset's
// store (§6.6).
func (c *Client) DeleteFileChunks(ctx context.Context, dataset, fileHash string) (int, error) {
	ds, err := c.Resolver.Dataset(dataset)
	if err != nil {
		return 0, err
	}
	store, err := c.Resolver.Store(ctx, ds.Database)
	if err != nil {
		return 0, err
	}
	return lifecycle.DeleteByFileHash(ctx, store, fileHash)
}

// DeleteDatasetChunks clears every chunk in a dataset's store (§6.6).
func (c *Client) DeleteDatasetChunks(ctx context.Context, dataset string) (*lifecycle.ClearResult, error) {
	ds, err := c.Resolver.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	store, err := c.Resolver.Store(ctx, ds.Database)
	if err != nil {
		return nil, err
	}
	return lifecycle.ClearDataset(ctx, store)
}

// SearchOptions carries Search's optional parameters (§6.6): a
// minimum score cutoff, a metadata filter, an explicit retrieval
// strategy override, and returnRawDocuments to bypass the configured
// strategy (reranking, decomposition, ...) and fall back to
// BasicSimilarity directly against the store.
type SearchOptions struct {
	MinScore           float64
	MetadataFilter     vectorstore.MetadataFilter
	RetrievalStrategy  string
	ReturnRawDocuments bool
}

// Search retrieves the topK best-matching chunks for query against a
// database, through the named (or database-default) retrieval
// strategy (§6.6).
func (c *Client) Search(ctx context.Context, database, query string, topK int, opts SearchOptions) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	dbCfg, err := c.Resolver.Database(database)
	if err != nil {
		return nil, err
	}
	store, err := c.Resolver.Store(ctx, database)
	if err != nil {
		return nil, err
	}

	var strategy retrieval.Strategy = retrieval.BasicSimilarity{}
	if !opts.ReturnRawDocuments {
		strategyName := opts.RetrievalStrategy
		if strategyName == "" {
			strategyName = dbCfg.DefaultRetrievalStrategy
		}
		if strategyName != "" {
			resolved, err := c.Resolver.ResolveStrategy(strategyName)
			if err != nil {
				return nil, err
			}
			strategy, err = buildStrategy(resolved, c.Resolver.Strategies())
			if err != nil {
				return nil, err
			}
		}
	}

	embeddings, err := c.Embedder.Embed(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		return nil, fmt.Errorf("ragdata: embedding query: %w", err)
	}

	result, err := strategy.Retrieve(ctx, retrieval.Request{
		QueryEmbedding: embeddings[0],
		Store:          store,
		TopK:           topK,
		QueryText:      query,
		Embedder:       c.Embedder,
		MetadataFilter: opts.MetadataFilter,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(result.Documents))
	for i, doc := range result.Documents {
		score := 0.0
		if i < len(result.Scores) {
			score = result.Scores[i]
		}
		if score < opts.MinScore {
			continue
		}
		out = append(out, SearchResult{
			ID:       doc.ID,
			Content:  doc.Content,
			Score:    score,
			Metadata: doc.Metadata,
			Source:   doc.Source,
		})
	}
	return out, nil
}

// newProcessor builds the blob processor C5 wires for one chunk
// configuration. Parser overrides are accepted on the signature for
// forward compatibility with per-call parser routing overrides but are
// not yet interpreted — every call runs the default parser and
// extractor chains.
func (c *Client) newProcessor(chunkCfg chunker.Config, _ map[string]any) (*blobproc.Processor, error) {
	extractors, err := extractor.DefaultChain()
	if err != nil {
		return nil, fmt.Errorf("building extractor chain: %w", err)
	}
	return blobproc.NewProcessor(blobproc.DefaultChainWithOptions(c.ParserOptions), extractors, chunkCfg), nil
}

// Package ragconfig implements the Strategy & Configuration Resolver
// (C10): it consumes a typed, multi-dataset configuration record and
// produces fully-wired component trees (vector store, chunker config,
// resolved retrieval strategy config) for a chosen dataset, the way
// goreason.go's New(cfg Config) wires one global engine — generalized
// from one global config to a named-dataset lookup (§4.10).
package ragconfig

import (
	"context"

	"github.com/ragdata-go/ragdata/chunker"
	"github.com/ragdata-go/ragdata/ragerrors"
	"github.com/ragdata-go/ragdata/vectorstore"
	"github.com/ragdata-go/ragdata/vectorstore/memory"
	"github.com/ragdata-go/ragdata/vectorstore/qdrant"
	"github.com/ragdata-go/ragdata/vectorstore/sqlitevec"
)

// ModelConfig names one runtime model endpoint a strategy can
// reference by name instead of embedding connection details inline.
type ModelConfig struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key,omitempty"`
}

// RuntimeConfig is the pool of named models strategies resolve against.
type RuntimeConfig struct {
	Models []ModelConfig `json:"models"`
}

// StrategyConfig describes one named retrieval strategy configuration.
// Not every field applies to every Name; unused fields are ignored.
type StrategyConfig struct {
	Name string `json:"name"` // basic_similarity | metadata_filtered | cross_encoder_reranked | multi_turn_rag

	// ModelName, if set, is resolved against RuntimeConfig.Models for
	// strategies that need an LLM (multi_turn_rag's decomposition).
	ModelName string `json:"model_name,omitempty"`
	// RerankerModelName is resolved for strategies needing a
	// cross-encoder (cross_encoder_reranked, multi_turn_rag).
	RerankerModelName string `json:"reranker_model_name,omitempty"`

	// BaseStrategyName/RerankerStrategyName let multi_turn_rag name a
	// different strategy definition to delegate its simple path and
	// per-sub-query retrieval to, instead of hard-wiring
	// basic_similarity (SPEC_FULL.md supplemented feature: lazy
	// strategy initialization with name-keyed maps).
	BaseStrategyName     string `json:"base_strategy_name,omitempty"`
	RerankerStrategyName string `json:"reranker_strategy_name,omitempty"`

	InitialK            int     `json:"initial_k,omitempty"`
	FinalTopK           int     `json:"final_top_k,omitempty"`
	ComplexityThreshold int     `json:"complexity_threshold,omitempty"`
	MaxSubQueries       int     `json:"max_sub_queries,omitempty"`
	MinQueryLength      int     `json:"min_query_length,omitempty"`
	SubQueryTopK        int     `json:"sub_query_top_k,omitempty"`
	MaxWorkers          int     `json:"max_workers,omitempty"`
	DedupThreshold      float64 `json:"dedup_threshold,omitempty"`
}

// ResolvedStrategy is a StrategyConfig augmented with the connection
// details its named model references resolved to — per §4.10, "the
// strategy never reads global config directly."
type ResolvedStrategy struct {
	StrategyConfig
	ModelProvider        string
	ModelBaseURL         string
	ModelID              string
	ModelAPIKey          string
	RerankerModelProvider string
	RerankerModelBaseURL string
	RerankerModelID      string
	RerankerModelAPIKey  string
}

// DataProcessingStrategyConfig configures the Chunker (C2) and parser
// routing overrides for a dataset.
type DataProcessingStrategyConfig struct {
	Name          string `json:"name"`
	ChunkStrategy string `json:"chunk_strategy,omitempty"`
	ChunkSize     int    `json:"chunk_size,omitempty"`
	ChunkOverlap  int    `json:"chunk_overlap,omitempty"`
	MinChunkSize  int    `json:"min_chunk_size,omitempty"`
	MaxChunkSize  int    `json:"max_chunk_size,omitempty"`
}

// DatabaseBackend selects a vectorstore.Store implementation.
type DatabaseBackend string

const (
	BackendSQLiteVec DatabaseBackend = "sqlitevec"
	BackendQdrant    DatabaseBackend = "qdrant"
	BackendMemory    DatabaseBackend = "memory"
)

// DatabaseConfig names one vector store instance, namespaced by
// (database_name, project_dir) per §4.6.
type DatabaseConfig struct {
	Name         string          `json:"name"`
	ProjectDir   string          `json:"project_dir,omitempty"`
	Backend      DatabaseBackend `json:"backend"`
	EmbeddingDim int             `json:"embedding_dim"`

	// DefaultRetrievalStrategy names the StrategyConfig a search()
	// call against this database uses when the caller doesn't name
	// one explicitly (§6.5, §6.6).
	DefaultRetrievalStrategy string `json:"default_retrieval_strategy,omitempty"`

	// Qdrant-only fields.
	Host   string `json:"host,omitempty"`
	Port   int    `json:"port,omitempty"`
	APIKey string `json:"api_key,omitempty"`
	UseTLS bool   `json:"use_tls,omitempty"`
}

// DatasetConfig ties a dataset to its database, data-processing
// strategy, and retrieval strategy, each resolved by name.
type DatasetConfig struct {
	Name                   string `json:"name"`
	Database               string `json:"database_name"`
	DataProcessingStrategy string `json:"data_processing_strategy_name"`
	RetrievalStrategy      string `json:"retrieval_strategy_name,omitempty"`
	DefaultTTLDays         int    `json:"default_ttl_days,omitempty"`
	// AutoProcess gates whether an Ingest call with no explicit
	// file_hashes is accepted as a legitimate no-op trigger (true) or
	// rejected outright (false, the default) — the supplemented
	// auto_process feature (SPEC_FULL.md §9.4).
	AutoProcess bool `json:"auto_process,omitempty"`
}

// Record is the full typed configuration the Resolver consumes.
type Record struct {
	Datasets                 []DatasetConfig                `json:"datasets"`
	DataProcessingStrategies []DataProcessingStrategyConfig  `json:"data_processing_strategies"`
	Databases                []DatabaseConfig                `json:"databases"`
	Strategies               []StrategyConfig                `json:"retrieval_strategies"`
	Runtime                  RuntimeConfig                   `json:"runtime"`
}

// Resolver resolves named references within a Record into concrete
// component configuration.
type Resolver struct {
	record Record
}

// New builds a Resolver over a configuration record.
func New(record Record) *Resolver {
	return &Resolver{record: record}
}

// Dataset looks up a named dataset's configuration.
func (r *Resolver) Dataset(name string) (DatasetConfig, error) {
	return r.dataset(name)
}

// Strategies returns every named strategy configuration, keyed by
// name, for callers (the composition root) that need to resolve a
// strategy another strategy names by reference (BaseStrategyName,
// RerankerStrategyName).
func (r *Resolver) Strategies() map[string]StrategyConfig {
	out := make(map[string]StrategyConfig, len(r.record.Strategies))
	for _, s := range r.record.Strategies {
		out[s.Name] = s
	}
	return out
}

func (r *Resolver) dataset(name string) (DatasetConfig, error) {
	for _, d := range r.record.Datasets {
		if d.Name == name {
			return d, nil
		}
	}
	return DatasetConfig{}, &ragerrors.NotFound{Resource: "dataset", Name: name}
}

// Database looks up a named database's configuration.
func (r *Resolver) Database(name string) (DatabaseConfig, error) {
	return r.database(name)
}

func (r *Resolver) database(name string) (DatabaseConfig, error) {
	for _, d := range r.record.Databases {
		if d.Name == name {
			return d, nil
		}
	}
	return DatabaseConfig{}, &ragerrors.NotFound{Resource: "database", Name: name}
}

func (r *Resolver) dataProcessingStrategy(name string) (DataProcessingStrategyConfig, error) {
	for _, s := range r.record.DataProcessingStrategies {
		if s.Name == name {
			return s, nil
		}
	}
	return DataProcessingStrategyConfig{}, &ragerrors.NotFound{Resource: "data_processing_strategy", Name: name}
}

func (r *Resolver) strategy(name string) (StrategyConfig, error) {
	for _, s := range r.record.Strategies {
		if s.Name == name {
			return s, nil
		}
	}
	return StrategyConfig{}, &ragerrors.NotFound{Resource: "strategy", Name: name}
}

func (r *Resolver) model(name string) (ModelConfig, error) {
	for _, m := range r.record.Runtime.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelConfig{}, &ragerrors.NotFound{Resource: "model", Name: name}
}

// ResolveStrategy looks up a named strategy config and augments it
// with its named models' connection details (§4.10).
func (r *Resolver) ResolveStrategy(name string) (*ResolvedStrategy, error) {
	cfg, err := r.strategy(name)
	if err != nil {
		return nil, err
	}
	resolved := &ResolvedStrategy{StrategyConfig: cfg}

	if cfg.ModelName != "" {
		m, err := r.model(cfg.ModelName)
		if err != nil {
			return nil, err
		}
		resolved.ModelProvider = m.Provider
		resolved.ModelBaseURL = m.BaseURL
		resolved.ModelID = m.Model
		resolved.ModelAPIKey = m.APIKey
	}
	if cfg.RerankerModelName != "" {
		m, err := r.model(cfg.RerankerModelName)
		if err != nil {
			return nil, err
		}
		resolved.RerankerModelProvider = m.Provider
		resolved.RerankerModelBaseURL = m.BaseURL
		resolved.RerankerModelID = m.Model
		resolved.RerankerModelAPIKey = m.APIKey
	}
	return resolved, nil
}

// ChunkConfig resolves a named data-processing strategy into a
// chunker.Config.
func (r *Resolver) ChunkConfig(name string) (chunker.Config, error) {
	cfg, err := r.dataProcessingStrategy(name)
	if err != nil {
		return chunker.Config{}, err
	}
	out := chunker.DefaultConfig()
	if cfg.ChunkStrategy != "" {
		out.Strategy = chunker.Strategy(cfg.ChunkStrategy)
	}
	if cfg.ChunkSize > 0 {
		out.ChunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap > 0 {
		out.ChunkOverlap = cfg.ChunkOverlap
	}
	if cfg.MinChunkSize > 0 {
		out.MinChunkSize = cfg.MinChunkSize
	}
	if cfg.MaxChunkSize > 0 {
		out.MaxChunkSize = cfg.MaxChunkSize
	}
	return out, nil
}

// Store opens the vectorstore.Store backend a named database config
// points at, namespaced under <project_dir>/lf_data/stores/<database_name>
// for the local backends, per §4.6.
func (r *Resolver) Store(ctx context.Context, databaseName string) (vectorstore.Store, error) {
	cfg, err := r.database(databaseName)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendQdrant:
		collection := qdrant.CollectionName(cfg.ProjectDir, cfg.Name)
		return qdrant.Open(ctx, cfg.Host, cfg.Port, cfg.APIKey, cfg.UseTLS, collection, cfg.EmbeddingDim)
	case BackendMemory:
		return memory.New(), nil
	case BackendSQLiteVec, "":
		return sqlitevec.Open(cfg.ProjectDir, cfg.Name, cfg.EmbeddingDim)
	default:
		return nil, &ragerrors.InvalidArgument{Parameter: "backend", Reason: "unknown vector store backend " + string(cfg.Backend)}
	}
}

// WiredDataset bundles the resolved configuration a dataset's
// ingestion/retrieval path needs.
type WiredDataset struct {
	Dataset           DatasetConfig
	Store             vectorstore.Store
	ChunkConfig       chunker.Config
	RetrievalStrategy *ResolvedStrategy
	DefaultTTLDays    int
}

// Wire resolves every named reference a dataset carries into one
// fully-wired bundle (§4.10: "produces fully-wired component trees for
// a chosen dataset").
func (r *Resolver) Wire(ctx context.Context, datasetName string) (*WiredDataset, error) {
	ds, err := r.dataset(datasetName)
	if err != nil {
		return nil, err
	}
	store, err := r.Store(ctx, ds.Database)
	if err != nil {
		return nil, err
	}
	chunkCfg, err := r.ChunkConfig(ds.DataProcessingStrategy)
	if err != nil {
		return nil, err
	}
	strategy, err := r.ResolveStrategy(ds.RetrievalStrategy)
	if err != nil {
		return nil, err
	}
	return &WiredDataset{
		Dataset:           ds,
		Store:             store,
		ChunkConfig:       chunkCfg,
		RetrievalStrategy: strategy,
		DefaultTTLDays:    ds.DefaultTTLDays,
	}, nil
}

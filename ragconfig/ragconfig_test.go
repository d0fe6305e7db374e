package ragconfig

import (
	"context"
	"testing"

	"github.com/ragdata-go/ragdata/ragerrors"
)

func testRecord() Record {
	return Record{
		Runtime: RuntimeConfig{Models: []ModelConfig{
			{Name: "local-chat", Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"},
			{Name: "local-reranker", Provider: "ollama", Model: "bge-reranker", BaseURL: "http://localhost:11435"},
		}},
		Strategies: []StrategyConfig{
			{Name: "basic"},
			{Name: "smart", ModelName: "local-chat", RerankerModelName: "local-reranker", BaseStrategyName: "basic"},
		},
		DataProcessingStrategies: []DataProcessingStrategyConfig{
			{Name: "default", ChunkStrategy: "paragraphs", ChunkSize: 500, ChunkOverlap: 50},
		},
		Databases: []DatabaseConfig{
			{Name: "main", Backend: BackendMemory, EmbeddingDim: 4},
		},
		Datasets: []DatasetConfig{
			{Name: "docs", Database: "main", DataProcessingStrategy: "default", RetrievalStrategy: "smart", DefaultTTLDays: 30},
		},
	}
}

func TestResolveStrategyAugmentsModelDetails(t *testing.T) {
	r := New(testRecord())
	resolved, err := r.ResolveStrategy("smart")
	if err != nil {
		t.Fatalf("ResolveStrategy: %v", err)
	}
	if resolved.ModelBaseURL != "http://localhost:11434" || resolved.ModelID != "llama3" {
		t.Errorf("model resolution = %+v", resolved)
	}
	if resolved.RerankerModelBaseURL != "http://localhost:11435" || resolved.RerankerModelID != "bge-reranker" {
		t.Errorf("reranker model resolution = %+v", resolved)
	}
	if resolved.BaseStrategyName != "basic" {
		t.Errorf("BaseStrategyName = %q, want basic", resolved.BaseStrategyName)
	}
}

func TestResolveStrategyUnknownModelIsNotFound(t *testing.T) {
	record := testRecord()
	record.Strategies = append(record.Strategies, StrategyConfig{Name: "broken", ModelName: "does-not-exist"})
	r := New(record)
	_, err := r.ResolveStrategy("broken")
	if ragerrors.KindOf(err) != ragerrors.KindNotFound {
		t.Fatalf("KindOf(err) = %v, want KindNotFound", ragerrors.KindOf(err))
	}
}

func TestChunkConfigAppliesOverrides(t *testing.T) {
	r := New(testRecord())
	cfg, err := r.ChunkConfig("default")
	if err != nil {
		t.Fatalf("ChunkConfig: %v", err)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("ChunkConfig = %+v", cfg)
	}
}

func TestWireResolvesFullDataset(t *testing.T) {
	r := New(testRecord())
	wired, err := r.Wire(context.Background(), "docs")
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	if wired.Store == nil {
		t.Fatal("expected a resolved store")
	}
	if wired.RetrievalStrategy.Name != "smart" {
		t.Errorf("RetrievalStrategy.Name = %q, want smart", wired.RetrievalStrategy.Name)
	}
	if wired.DefaultTTLDays != 30 {
		t.Errorf("DefaultTTLDays = %d, want 30", wired.DefaultTTLDays)
	}
}

func TestWireUnknownDatasetIsNotFound(t *testing.T) {
	r := New(testRecord())
	_, err := r.Wire(context.Background(), "missing")
	if ragerrors.KindOf(err) != ragerrors.KindNotFound {
		t.Fatalf("KindOf(err) = %v, want KindNotFound", ragerrors.KindOf(err))
	}
}

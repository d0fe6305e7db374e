package ragdata

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ragdata-go/ragdata/lifecycle"
	"github.com/ragdata-go/ragdata/ragconfig"
	"github.com/ragdata-go/ragdata/taskqueue"
)

// fakeSource is an in-memory ingest.Source test
// double, hand-rolled rather than pulling in a mocking framework.
type fakeSource struct {
	files map[string]fakeFile
}

type fakeFile struct {
	data     []byte
	filename string
	metadata map[string]any
}

func (s *fakeSource) Load(_ context.Context, fileHash string) ([]byte, string, map[string]any, error) {
	f, ok := s.files[fileHash]
	if !ok {
		return nil, "", nil, fmt.Errorf("fakeSource: no file for hash %q", fileHash)
	}
	return f.data, f.filename, f.metadata, nil
}

// fakeEmbedder returns a deterministic, cheap vector per text so tests
// never need a real embedding model.
type fakeEmbedder struct{ dim int }

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, e.dim)
		for j := range vec {
			vec[j] = float32(len(t)+j) / 10
		}
		out[i] = vec
	}
	return out, nil
}

func testClient(t *testing.T, source *fakeSource, autoProcess bool) *Client {
	t.Helper()
	record := ragconfig.Record{
		Strategies: []ragconfig.StrategyConfig{
			{Name: "basic_similarity"},
		},
		DataProcessingStrategies: []ragconfig.DataProcessingStrategyConfig{
			{Name: "default", ChunkStrategy: "paragraphs", ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 10, MaxChunkSize: 800},
		},
		Databases: []ragconfig.DatabaseConfig{
			{Name: "main", Backend: ragconfig.BackendMemory, EmbeddingDim: 4, DefaultRetrievalStrategy: "basic_similarity"},
		},
		Datasets: []ragconfig.DatasetConfig{
			{Name: "docs", Database: "main", DataProcessingStrategy: "default", RetrievalStrategy: "basic_similarity", AutoProcess: autoProcess},
		},
	}

	client := New(record, source, &fakeEmbedder{dim: 4}, nil)
	client.Queue = taskqueue.NewMemory(client.Handler)
	return client
}

func waitForIngest(t *testing.T, client *Client, id taskqueue.TaskID) *taskqueue.TaskRecord {
	t.Helper()
	for i := 0; i < 200; i++ {
		rec, err := client.Queue.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if rec.Status == taskqueue.StatusSucceeded || rec.Status == taskqueue.StatusFailed {
			return rec
		}
	}
	t.Fatal("task did not reach a terminal state")
	return nil
}

func paragraphText() string {
	return strings.Repeat("Paragraph one has plenty of words in it for chunking.\n\n", 3) +
		"Paragraph two follows after a blank line and is also reasonably long for a chunk."
}

func TestIngestAndSearchRoundTrip(t *testing.T) {
	content := []byte(paragraphText())
	hash := lifecycle.HashBytes(content)
	source := &fakeSource{files: map[string]fakeFile{
		hash: {data: content, filename: "report.txt"},
	}}
	client := testClient(t, source, false)

	taskID, err := client.Ingest(context.Background(), "docs", []string{hash}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := waitForIngest(t, client, taskID)
	if rec.Status != taskqueue.StatusSucceeded {
		t.Fatalf("ingest task status = %v, err = %q", rec.Status, rec.Err)
	}

	results, err := client.Search(context.Background(), "main", "paragraph", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one search result")
	}
	for _, r := range results {
		if r.Content == "" {
			t.Error("expected non-empty chunk content")
		}
	}
}

func TestIngestEmptyFileHashesRejectedWithoutAutoProcess(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, false)
	_, err := client.Ingest(context.Background(), "docs", nil, nil)
	if err != ErrEmptyFileHashes {
		t.Fatalf("err = %v, want ErrEmptyFileHashes", err)
	}
}

func TestIngestEmptyFileHashesAllowedWithAutoProcess(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, true)
	taskID, err := client.Ingest(context.Background(), "docs", nil, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	rec := waitForIngest(t, client, taskID)
	if rec.Status != taskqueue.StatusSucceeded {
		t.Fatalf("status = %v, err = %q", rec.Status, rec.Err)
	}
}

func TestIngestWithoutQueueReturnsErrQueueRequired(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, false)
	client.Queue = nil
	_, err := client.Ingest(context.Background(), "docs", []string{"hash1"}, nil)
	if err != ErrQueueRequired {
		t.Fatalf("err = %v, want ErrQueueRequired", err)
	}
}

func TestPreviewDoesNotPersistToStore(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, false)

	result, err := client.Preview(context.Background(), "main", "default", "", []byte(paragraphText()), "preview.txt", nil, nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected preview chunks")
	}

	results, err := client.Search(context.Background(), "main", "paragraph", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no persisted results from a preview, got %d", len(results))
	}
}

func TestPreviewRequiresFileHashOrContent(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, false)
	_, err := client.Preview(context.Background(), "main", "default", "", nil, "", nil, nil)
	if err != ErrNoFileContent {
		t.Fatalf("err = %v, want ErrNoFileContent", err)
	}
}

func TestDeleteFileChunksRemovesIngestedDocument(t *testing.T) {
	content := []byte(paragraphText())
	hash := lifecycle.HashBytes(content)
	source := &fakeSource{files: map[string]fakeFile{
		hash: {data: content, filename: "report.txt"},
	}}
	client := testClient(t, source, false)

	taskID, err := client.Ingest(context.Background(), "docs", []string{hash}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	waitForIngest(t, client, taskID)

	deleted, err := client.DeleteFileChunks(context.Background(), "docs", hash)
	if err != nil {
		t.Fatalf("DeleteFileChunks: %v", err)
	}
	if deleted == 0 {
		t.Fatal("expected at least one deleted chunk")
	}

	results, err := client.Search(context.Background(), "main", "paragraph", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results after deletion, got %d", len(results))
	}
}

func TestDeleteDatasetChunksClearsEverything(t *testing.T) {
	contentA := []byte(paragraphText())
	contentB := []byte(paragraphText() + " second document")
	hashA := lifecycle.HashBytes(contentA)
	hashB := lifecycle.HashBytes(contentB)
	source := &fakeSource{files: map[string]fakeFile{
		hashA: {data: contentA, filename: "a.txt"},
		hashB: {data: contentB, filename: "b.txt"},
	}}
	client := testClient(t, source, false)

	taskID, err := client.Ingest(context.Background(), "docs", []string{hashA, hashB}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	waitForIngest(t, client, taskID)

	result, err := client.DeleteDatasetChunks(context.Background(), "docs")
	if err != nil {
		t.Fatalf("DeleteDatasetChunks: %v", err)
	}
	if result.TotalFilesCleared != 2 {
		t.Errorf("TotalFilesCleared = %d, want 2", result.TotalFilesCleared)
	}
}

func TestIngestUnknownDatasetIsNotFound(t *testing.T) {
	client := testClient(t, &fakeSource{files: map[string]fakeFile{}}, false)
	_, err := client.Ingest(context.Background(), "missing", []string{"hash1"}, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown dataset")
	}
}

package taskqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ragdata-go/ragdata/ragerrors"
)

func TestMemoryEnqueueRunsHandlerAndRecordsSuccess(t *testing.T) {
	var mu sync.Mutex
	var seen IngestTask

	q := NewMemory(func(ctx context.Context, task IngestTask) error {
		mu.Lock()
		seen = task
		mu.Unlock()
		return nil
	})

	id, err := q.Enqueue(context.Background(), IngestTask{Dataset: "docs", FileHashes: []string{"h1"}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	record := waitForTerminal(t, q, id)
	if record.Status != StatusSucceeded {
		t.Fatalf("Status = %v, want succeeded (err=%q)", record.Status, record.Err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen.Dataset != "docs" || len(seen.FileHashes) != 1 || seen.FileHashes[0] != "h1" {
		t.Errorf("handler saw %+v", seen)
	}
}

func TestMemoryEnqueueRecordsFailure(t *testing.T) {
	q := NewMemory(func(ctx context.Context, task IngestTask) error {
		return errors.New("boom")
	})

	id, err := q.Enqueue(context.Background(), IngestTask{Dataset: "docs"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	record := waitForTerminal(t, q, id)
	if record.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", record.Status)
	}
	if record.Err != "boom" {
		t.Errorf("Err = %q, want boom", record.Err)
	}
}

func TestMemoryStatusUnknownTaskIsNotFound(t *testing.T) {
	q := NewMemory(func(ctx context.Context, task IngestTask) error { return nil })
	_, err := q.Status(context.Background(), TaskID("does-not-exist"))
	if ragerrors.KindOf(err) != ragerrors.KindNotFound {
		t.Fatalf("KindOf(err) = %v, want KindNotFound", ragerrors.KindOf(err))
	}
}

func waitForTerminal(t *testing.T, q *Memory, id TaskID) *TaskRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := q.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if record.Status == StatusSucceeded || record.Status == StatusFailed {
			return record
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not reach a terminal status in time", id)
	return nil
}

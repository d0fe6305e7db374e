// Package taskqueue implements the opaque enqueue(task) -> task_id
// contract behind the async ingest(dataset, [file_hash...]?,
// parser_overrides?) -> task_id Core API call (§6.6). The Core API
// package hands ingestion work to a Queue and returns the task_id
// immediately; a worker (not part of this package) pops tasks and
// runs them through ingest.Driver.
package taskqueue

import (
	"context"
	"time"
)

// TaskID identifies one enqueued task. Opaque to callers.
type TaskID string

// TaskStatus is the lifecycle state of an enqueued task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
)

// IngestTask is the payload an ingest(dataset, ...) call enqueues.
type IngestTask struct {
	Dataset         string         `json:"dataset"`
	FileHashes      []string       `json:"file_hashes,omitempty"`
	ParserOverrides map[string]any `json:"parser_overrides,omitempty"`
}

// TaskRecord is a task's queue-tracked state, returned by Status.
type TaskRecord struct {
	ID         TaskID     `json:"id"`
	Task       IngestTask `json:"task"`
	Status     TaskStatus `json:"status"`
	Err        string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// Queue is the opaque enqueue(task) -> task_id contract. Implementations
// are free to run tasks in-process (Memory) or hand them to external
// workers (Redis).
type Queue interface {
	// Enqueue submits a task and returns its task_id without blocking
	// on the task's completion.
	Enqueue(ctx context.Context, task IngestTask) (TaskID, error)
	// Status reports a previously enqueued task's current state.
	Status(ctx context.Context, id TaskID) (*TaskRecord, error)
}

// Handler processes one IngestTask to completion. Queue implementations
// that run tasks themselves (Memory) are configured with a Handler;
// Redis-backed queues leave execution to an external worker process
// that pops tasks and calls a Handler itself.
type Handler func(ctx context.Context, task IngestTask) error

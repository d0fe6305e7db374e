package taskqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ragdata-go/ragdata/ragerrors"
)

// Memory is an in-process Queue for tests and single-node deployments:
// Enqueue hands the task to Handler on its own goroutine and records
// the outcome under a mutex-guarded map, the same shape as
// vectorstore/memory.Store's in-memory bookkeeping.
type Memory struct {
	handler Handler

	mu      sync.Mutex
	records map[TaskID]*TaskRecord
}

// NewMemory builds an in-memory Queue that runs every enqueued task
// through handler.
func NewMemory(handler Handler) *Memory {
	return &Memory{handler: handler, records: make(map[TaskID]*TaskRecord)}
}

var _ Queue = (*Memory)(nil)

func (m *Memory) Enqueue(ctx context.Context, task IngestTask) (TaskID, error) {
	id := TaskID(uuid.NewString())
	record := &TaskRecord{ID: id, Task: task, Status: StatusPending, EnqueuedAt: time.Now()}

	m.mu.Lock()
	m.records[id] = record
	m.mu.Unlock()

	go m.run(id, task)

	return id, nil
}

func (m *Memory) run(id TaskID, task IngestTask) {
	m.setStatus(id, StatusRunning, "")

	// A background worker's context is independent of the request that
	// enqueued the task; it must not be cancelled when the caller's
	// context ends.
	err := m.handler(context.Background(), task)
	if err != nil {
		m.setStatus(id, StatusFailed, err.Error())
		return
	}
	m.setStatus(id, StatusSucceeded, "")
}

func (m *Memory) setStatus(id TaskID, status TaskStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		r.Status = status
		r.Err = errMsg
	}
}

func (m *Memory) Status(ctx context.Context, id TaskID) (*TaskRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, &ragerrors.NotFound{Resource: "task", Name: string(id)}
	}
	clone := *r
	return &clone, nil
}

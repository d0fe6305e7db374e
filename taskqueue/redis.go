package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"
	"github.com/ragdata-go/ragdata/ragerrors"
)

// Redis is a Queue backed by a Redis list: Enqueue pushes a task_id
// onto a pending list and stores the task payload/status as a JSON
// string under a per-id key, for an out-of-process worker to pop and run.
type Redis struct {
	client    *goredis.Client
	keyPrefix string
}

// RedisConfig addresses a Redis instance the same way the pack's
// Redis-backed stores do (addr, no separate TLS/auth options needed
// for the local/dev deployments this queue targets).
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // defaults to "ragdata:taskqueue"
}

// NewRedis connects to Redis and validates the connection with Ping,
// the same construction shape as the pack's Redis-backed stores.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ragdata:taskqueue"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("taskqueue: redis ping failed: %w", err)
	}
	return &Redis{client: client, keyPrefix: prefix}, nil
}

var _ Queue = (*Redis)(nil)

func (r *Redis) pendingListKey() string  { return r.keyPrefix + ":pending" }
func (r *Redis) taskKey(id TaskID) string { return r.keyPrefix + ":task:" + string(id) }

type redisTaskPayload struct {
	Task       IngestTask `json:"task"`
	Status     TaskStatus `json:"status"`
	Err        string     `json:"err"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// Enqueue stores the task's payload and pending status as JSON under its key, then
// pushes its id onto the pending list for a worker to pop with
// BLPop(pendingListKey) and process with a Handler.
func (r *Redis) Enqueue(ctx context.Context, task IngestTask) (TaskID, error) {
	id := TaskID(uuid.NewString())
	payload := redisTaskPayload{Task: task, Status: StatusPending, EnqueuedAt: time.Now()}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("taskqueue: marshal task: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.taskKey(id), encoded, 0)
	pipe.RPush(ctx, r.pendingListKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", &ragerrors.StoreError{Op: "taskqueue_enqueue", Err: err}
	}

	return id, nil
}

// Status reads a task's current payload from its per-id key.
func (r *Redis) Status(ctx context.Context, id TaskID) (*TaskRecord, error) {
	raw, err := r.client.Get(ctx, r.taskKey(id)).Result()
	if err == goredis.Nil {
		return nil, &ragerrors.NotFound{Resource: "task", Name: string(id)}
	}
	if err != nil {
		return nil, &ragerrors.StoreError{Op: "taskqueue_status", Err: err}
	}

	var payload redisTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("taskqueue: unmarshal task %s: %w", id, err)
	}
	return &TaskRecord{
		ID:         id,
		Task:       payload.Task,
		Status:     payload.Status,
		Err:        payload.Err,
		EnqueuedAt: payload.EnqueuedAt,
	}, nil
}

// setStatus updates a task's status in place, for use by a worker
// process that pops the pending list and calls a Handler.
func (r *Redis) setStatus(ctx context.Context, id TaskID, status TaskStatus, errMsg string) error {
	raw, err := r.client.Get(ctx, r.taskKey(id)).Result()
	if err != nil {
		return err
	}
	var payload redisTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return err
	}
	payload.Status = status
	payload.Err = errMsg
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.taskKey(id), encoded, 0).Err()
}

// PopAndRun blocks (up to timeout) for the next pending task_id, runs
// it through handler, and records the resulting status — the worker
// loop an external process runs against a Redis-backed Queue.
func (r *Redis) PopAndRun(ctx context.Context, timeout time.Duration, handler Handler) (TaskID, error) {
	result, err := r.client.BLPop(ctx, timeout, r.pendingListKey()).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", &ragerrors.StoreError{Op: "taskqueue_pop", Err: err}
	}

	id := TaskID(result[1])
	record, err := r.Status(ctx, id)
	if err != nil {
		return id, err
	}

	if err := r.setStatus(ctx, id, StatusRunning, ""); err != nil {
		return id, err
	}
	if err := handler(ctx, record.Task); err != nil {
		_ = r.setStatus(ctx, id, StatusFailed, err.Error())
		return id, err
	}
	return id, r.setStatus(ctx, id, StatusSucceeded, "")
}

// Close releases the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

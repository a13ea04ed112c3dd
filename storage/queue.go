package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loganlanou/aigifts/internal/queue"
	"github.com/loganlanou/aigifts/storage/db"
)

// TaskQueue is the durable queue.Queue. Tasks survive restarts; a task whose
// lease lapses is handed out again.
type TaskQueue struct {
	q   *db.Queries
	now func() time.Time
}

var _ queue.Queue = (*TaskQueue)(nil)

func (t *TaskQueue) Enqueue(ctx context.Context, kind string, payload any) (queue.Task, error) {
	task, err := queue.NewTask(kind, payload, t.now().UTC())
	if err != nil {
		return queue.Task{}, err
	}
	err = t.q.EnqueueTask(ctx, db.EnqueueTaskParams{
		ID:          task.ID,
		Kind:        task.Kind,
		Payload:     task.Payload,
		Attempts:    0,
		AvailableAt: toMillis(task.AvailableAt),
		CreatedAt:   toMillis(task.CreatedAt),
	})
	if err != nil {
		return queue.Task{}, fmt.Errorf("enqueue %s task: %w", kind, err)
	}
	return task, nil
}

func (t *TaskQueue) Claim(ctx context.Context, lease time.Duration) (queue.Task, error) {
	now := t.now().UTC()
	row, err := t.q.ClaimTask(ctx, db.ClaimTaskParams{
		LeaseUntil: toMillis(now.Add(lease)),
		Now:        toMillis(now),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return queue.Task{}, queue.ErrEmpty
	}
	if err != nil {
		return queue.Task{}, fmt.Errorf("claim task: %w", err)
	}
	return queue.Task{
		ID:          row.ID,
		Kind:        row.Kind,
		Payload:     row.Payload,
		Attempts:    int(row.Attempts),
		AvailableAt: fromMillis(row.AvailableAt),
		CreatedAt:   fromMillis(row.CreatedAt),
	}, nil
}

func (t *TaskQueue) Ack(ctx context.Context, id string) error {
	n, err := t.q.DeleteTask(ctx, id)
	if err != nil {
		return fmt.Errorf("ack task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

func (t *TaskQueue) Nack(ctx context.Context, id string, retryAfter time.Duration) error {
	n, err := t.q.RescheduleTask(ctx, db.RescheduleTaskParams{
		AvailableAt: toMillis(t.now().UTC().Add(retryAfter)),
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("nack task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// Len reports the number of unacked tasks.
func (t *TaskQueue) Len(ctx context.Context) (int64, error) {
	return t.q.CountTasks(ctx)
}

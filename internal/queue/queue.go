package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrEmpty is returned by Claim when no task is ready.
var ErrEmpty = errors.New("queue empty")

const KindStylize = "stylize"

type Task struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	AvailableAt time.Time       `json:"available_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Queue delivers each task at least once. A claimed task is leased; if it is
// neither acked nor nacked before the lease runs out it becomes claimable again.
type Queue interface {
	Enqueue(ctx context.Context, kind string, payload any) (Task, error)
	Claim(ctx context.Context, lease time.Duration) (Task, error)
	Ack(ctx context.Context, id string) error
	Nack(ctx context.Context, id string, retryAfter time.Duration) error
}

// NewTask builds a task ready for immediate delivery.
func NewTask(kind string, payload any, now time.Time) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal task payload: %w", err)
	}
	return Task{
		ID:          ulid.Make().String(),
		Kind:        kind,
		Payload:     raw,
		AvailableAt: now,
		CreatedAt:   now,
	}, nil
}

// MemoryQueue is an in-process Queue used by tests and STORE=memory.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[string]*Task
	now   func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, kind string, payload any) (Task, error) {
	task, err := NewTask(kind, payload, q.now().UTC())
	if err != nil {
		return Task{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[task.ID] = &task
	return task, nil
}

func (q *MemoryQueue) Claim(_ context.Context, lease time.Duration) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	ready := make([]*Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		if !t.AvailableAt.After(now) {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return Task{}, ErrEmpty
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].AvailableAt.Equal(ready[j].AvailableAt) {
			return ready[i].ID < ready[j].ID
		}
		return ready[i].AvailableAt.Before(ready[j].AvailableAt)
	})

	t := ready[0]
	t.Attempts++
	t.AvailableAt = now.Add(lease)
	return *t, nil
}

func (q *MemoryQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.tasks[id]; !ok {
		return fmt.Errorf("task %s not found", id)
	}
	delete(q.tasks, id)
	return nil
}

func (q *MemoryQueue) Nack(_ context.Context, id string, retryAfter time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	t.AvailableAt = q.now().UTC().Add(retryAfter)
	return nil
}

// Len reports the number of unacked tasks.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultLease        = 5 * time.Minute
	DefaultMaxAttempts  = 5
	DefaultConcurrency  = 4
)

// Handler executes one task. Returning an error schedules a retry.
type Handler func(ctx context.Context, task Task) error

// DeadLetterHandler is told about a task that used up its attempts, just
// before the task is dropped.
type DeadLetterHandler func(ctx context.Context, task Task, cause error)

type RunnerOptions struct {
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	Concurrency  int64
	RetryBackoff time.Duration
}

// Runner drains a Queue with a bounded number of concurrent handlers.
type Runner struct {
	queue       Queue
	handlers    map[string]Handler
	deadLetters map[string]DeadLetterHandler
	opts        RunnerOptions
	sem         *semaphore.Weighted

	wg     sync.WaitGroup
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewRunner(q Queue, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Lease <= 0 {
		opts.Lease = DefaultLease
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 10 * time.Second
	}
	return &Runner{
		queue:       q,
		handlers:    make(map[string]Handler),
		deadLetters: make(map[string]DeadLetterHandler),
		opts:        opts,
		sem:         semaphore.NewWeighted(opts.Concurrency),
		done:        make(chan struct{}),
	}
}

// Handle registers the handler for a task kind. Call before Start.
func (r *Runner) Handle(kind string, h Handler) {
	r.handlers[kind] = h
}

// HandleDeadLetter registers what to do when a task of kind fails for the
// last time. Call before Start.
func (r *Runner) HandleDeadLetter(kind string, h DeadLetterHandler) {
	r.deadLetters[kind] = h
}

// Start polls the queue in the background until Stop or ctx is done.
func (r *Runner) Start(ctx context.Context) {
	slog.Info("starting task runner",
		"interval", r.opts.PollInterval,
		"concurrency", r.opts.Concurrency,
		"max_attempts", r.opts.MaxAttempts)

	r.ticker = time.NewTicker(r.opts.PollInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ticker.C:
				r.poll(ctx)
			case <-ctx.Done():
				slog.Info("task runner stopped", "reason", ctx.Err())
				return
			case <-r.done:
				slog.Info("task runner stopped")
				return
			}
		}
	}()
}

// Stop ends polling and waits for in-flight handlers.
func (r *Runner) Stop() {
	r.once.Do(func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.done)
	})
	r.wg.Wait()
}

// Drain processes every ready task and waits for them to finish.
// It returns the number of tasks claimed. Not for use on a started Runner.
func (r *Runner) Drain(ctx context.Context) int {
	n := r.poll(ctx)
	r.wg.Wait()
	return n
}

func (r *Runner) poll(ctx context.Context) int {
	claimed := 0
	for {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return claimed
		}

		task, err := r.queue.Claim(ctx, r.opts.Lease)
		if errors.Is(err, ErrEmpty) {
			r.sem.Release(1)
			return claimed
		}
		if err != nil {
			r.sem.Release(1)
			slog.Error("failed to claim task", "error", err)
			return claimed
		}
		claimed++

		r.wg.Add(1)
		go func(task Task) {
			defer r.wg.Done()
			defer r.sem.Release(1)
			r.execute(ctx, task)
		}(task)
	}
}

func (r *Runner) execute(ctx context.Context, task Task) {
	handler, ok := r.handlers[task.Kind]
	if !ok {
		slog.Error("no handler for task kind, dropping", "task_id", task.ID, "kind", task.Kind)
		r.ack(ctx, task)
		return
	}

	err := runHandler(ctx, handler, task)
	if err == nil {
		r.ack(ctx, task)
		return
	}

	if task.Attempts >= r.opts.MaxAttempts {
		slog.Error("task failed permanently",
			"task_id", task.ID,
			"kind", task.Kind,
			"attempts", task.Attempts,
			"error", err)
		if dead, ok := r.deadLetters[task.Kind]; ok {
			dead(context.WithoutCancel(ctx), task, err)
		}
		r.ack(ctx, task)
		return
	}

	retryAfter := r.opts.RetryBackoff * time.Duration(task.Attempts)
	slog.Warn("task failed, will retry",
		"task_id", task.ID,
		"kind", task.Kind,
		"attempts", task.Attempts,
		"retry_after", retryAfter,
		"error", err)
	if nackErr := r.queue.Nack(ctx, task.ID, retryAfter); nackErr != nil {
		slog.Error("failed to nack task", "task_id", task.ID, "error", nackErr)
	}
}

func (r *Runner) ack(ctx context.Context, task Task) {
	if err := r.queue.Ack(ctx, task.ID); err != nil {
		slog.Error("failed to ack task", "task_id", task.ID, "error", err)
	}
}

func runHandler(ctx context.Context, h Handler, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, task)
}

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]Job),
		now:  time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	now := s.now().UTC()
	if job.Status == "" {
		job.Status = StatusQueued
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, update Update) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if !CanTransition(job.Status, update.Status) {
		return job, transitionError(id, job.Status, update.Status)
	}

	job.Status = update.Status
	if update.ResultURL != "" {
		job.ResultURL = update.ResultURL
	}
	if update.Error != "" {
		job.Error = update.Error
	}
	job.UpdatedAt = s.now().UTC()
	s.jobs[id] = job
	return job, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loganlanou/aigifts/internal/jobs"
	"github.com/loganlanou/aigifts/storage/db"
)

// JobStore persists stylization jobs in SQLite.
type JobStore struct {
	q   *db.Queries
	now func() time.Time
}

var _ jobs.Store = (*JobStore)(nil)

func (s *JobStore) Create(ctx context.Context, job jobs.Job) error {
	now := s.now().UTC()
	if job.Status == "" {
		job.Status = jobs.StatusQueued
	}
	err := s.q.CreateJob(ctx, db.CreateJobParams{
		ID:        job.ID,
		Status:    string(job.Status),
		ImageID:   job.ImageID,
		ResultUrl: nullString(job.ResultURL),
		Error:     nullString(job.Error),
		Theme:     job.Input.Theme,
		Prompt:    job.Input.Prompt,
		ImageKey:  job.Input.ImageKey,
		CreatedAt: toMillis(now),
		UpdatedAt: toMillis(now),
	})
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (jobs.Job, error) {
	row, err := s.q.GetJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	if err != nil {
		return jobs.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return toJob(row), nil
}

// Transition applies update only if the job has not moved since it was read.
func (s *JobStore) Transition(ctx context.Context, id string, update jobs.Update) (jobs.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return jobs.Job{}, err
	}
	if !jobs.CanTransition(job.Status, update.Status) {
		return job, fmt.Errorf("job %s %s -> %s: %w", id, job.Status, update.Status, jobs.ErrInvalidTransition)
	}

	now := s.now().UTC()
	n, err := s.q.UpdateJobStatus(ctx, db.UpdateJobStatusParams{
		Status:     string(update.Status),
		ResultUrl:  nullString(update.ResultURL),
		Error:      nullString(update.Error),
		UpdatedAt:  toMillis(now),
		ID:         id,
		FromStatus: string(job.Status),
	})
	if err != nil {
		return job, fmt.Errorf("update job %s: %w", id, err)
	}
	if n == 0 {
		return job, fmt.Errorf("job %s changed concurrently: %w", id, jobs.ErrInvalidTransition)
	}

	job.Status = update.Status
	if update.ResultURL != "" {
		job.ResultURL = update.ResultURL
	}
	if update.Error != "" {
		job.Error = update.Error
	}
	job.UpdatedAt = fromMillis(toMillis(now))
	return job, nil
}

func toJob(row db.Job) jobs.Job {
	return jobs.Job{
		ID:        row.ID,
		Status:    jobs.Status(row.Status),
		ImageID:   row.ImageID,
		ResultURL: row.ResultUrl.String,
		Error:     row.Error.String,
		Input: jobs.Input{
			Theme:    row.Theme,
			Prompt:   row.Prompt,
			ImageKey: row.ImageKey,
		},
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}
}

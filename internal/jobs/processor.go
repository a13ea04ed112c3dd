package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loganlanou/aigifts/internal/blob"
)

// Stylizer turns a source photo into the themed artwork.
type Stylizer interface {
	Stylize(ctx context.Context, source []byte, mimeType, prompt string) ([]byte, error)
}

type Processor struct {
	store    Store
	blobs    blob.Store
	stylizer Stylizer
}

func NewProcessor(store Store, blobs blob.Store, stylizer Stylizer) *Processor {
	return &Processor{
		store:    store,
		blobs:    blobs,
		stylizer: stylizer,
	}
}

// ResultKey is the blob key of a finished job's artwork.
func ResultKey(jobID string) string {
	return "results/" + jobID + ".png"
}

// Process runs one job to a terminal state. Jobs that are already done or
// failed are returned untouched, so a redelivered task is harmless.
// A stylization failure is recorded on the job and is not returned as an
// error; only store failures are, and those are worth retrying.
func (p *Processor) Process(ctx context.Context, id string) (Job, error) {
	job, err := p.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}

	if job.Status.Terminal() {
		slog.Debug("job already finished", "job_id", id, "status", job.Status)
		return job, nil
	}

	if job.Status == StatusQueued {
		job, err = p.store.Transition(ctx, id, Update{Status: StatusProcessing})
		if err != nil {
			return job, fmt.Errorf("mark processing: %w", err)
		}
	}

	slog.Info("processing job", "job_id", id, "theme", job.Input.Theme, "image_id", job.ImageID)

	resultURL, runErr := p.run(ctx, job)
	if runErr != nil {
		slog.Error("job failed", "job_id", id, "error", runErr)
		failed, err := p.store.Transition(ctx, id, Update{Status: StatusError, Error: runErr.Error()})
		if err != nil {
			return job, fmt.Errorf("mark error: %w", err)
		}
		return failed, nil
	}

	done, err := p.store.Transition(ctx, id, Update{Status: StatusDone, ResultURL: resultURL})
	if err != nil {
		return job, fmt.Errorf("mark done: %w", err)
	}
	slog.Info("job done", "job_id", id, "result_url", resultURL)
	return done, nil
}

// Fail moves a job that can no longer be processed to error. Finished jobs
// are left as they are.
func (p *Processor) Fail(ctx context.Context, id, reason string) (Job, error) {
	job, err := p.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	failed, err := p.store.Transition(ctx, id, Update{Status: StatusError, Error: reason})
	if err != nil {
		return job, fmt.Errorf("mark error: %w", err)
	}
	slog.Error("job abandoned", "job_id", id, "reason", reason)
	return failed, nil
}

func (p *Processor) run(ctx context.Context, job Job) (string, error) {
	source, err := p.blobs.Get(ctx, job.Input.ImageKey)
	if err != nil {
		return "", fmt.Errorf("load source image: %w", err)
	}

	result, err := p.stylizer.Stylize(ctx, source, blob.ContentTypeFor(job.Input.ImageKey), job.Input.Prompt)
	if err != nil {
		return "", fmt.Errorf("stylize: %w", err)
	}

	url, err := p.blobs.Put(ctx, ResultKey(job.ID), "image/png", result)
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return url, nil
}

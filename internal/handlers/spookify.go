package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/loganlanou/aigifts/internal/apperr"
	"github.com/loganlanou/aigifts/internal/auth"
	"github.com/loganlanou/aigifts/internal/blob"
	"github.com/loganlanou/aigifts/internal/jobs"
	"github.com/loganlanou/aigifts/internal/queue"
	"github.com/loganlanou/aigifts/internal/themes"
)

// StylizeTask is the queue payload for one stylization job.
type StylizeTask struct {
	JobID string `json:"job_id"`
}

// JobTrigger runs a queued job somewhere. The default runs it in-process.
type JobTrigger interface {
	Trigger(ctx context.Context, jobID string) error
}

type SpookifyHandler struct {
	jobs      jobs.Store
	queue     queue.Queue
	blobs     blob.Store
	processor *jobs.Processor
	trigger   JobTrigger
}

func NewSpookifyHandler(store jobs.Store, q queue.Queue, blobs blob.Store, processor *jobs.Processor) *SpookifyHandler {
	return &SpookifyHandler{
		jobs:      store,
		queue:     q,
		blobs:     blobs,
		processor: processor,
	}
}

// WithTrigger hands stylize tasks to t instead of the local processor.
func (h *SpookifyHandler) WithTrigger(t JobTrigger) *SpookifyHandler {
	h.trigger = t
	return h
}

type BeginRequest struct {
	ImageID  string `json:"image_id"`
	ImageKey string `json:"image_key"`
	Theme    string `json:"theme"`
	Prompt   string `json:"prompt"`
}

type BeginResponse struct {
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	StatusURL string      `json:"status_url"`
}

// Begin records a queued job and enqueues it. The response never waits for
// the image to be generated.
func (h *SpookifyHandler) Begin(c echo.Context) error {
	var req BeginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.ImageID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "image_id is required")
	}

	theme, err := themes.Parse(req.Theme)
	if err != nil {
		return err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = theme.Info().DefaultPrompt
	}

	ctx := c.Request().Context()
	key, err := h.resolveImage(ctx, req.ImageID, req.ImageKey)
	if err != nil {
		return err
	}

	job := jobs.Job{
		ID:      ulid.Make().String(),
		Status:  jobs.StatusQueued,
		ImageID: req.ImageID,
		Input: jobs.Input{
			Theme:    string(theme),
			Prompt:   prompt,
			ImageKey: key,
		},
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	if _, err := h.queue.Enqueue(ctx, queue.KindStylize, StylizeTask{JobID: job.ID}); err != nil {
		slog.Error("failed to enqueue job", "job_id", job.ID, "error", err)
		if _, terr := h.jobs.Transition(context.WithoutCancel(ctx), job.ID, jobs.Update{
			Status: jobs.StatusError,
			Error:  "could not be queued",
		}); terr != nil {
			slog.Error("failed to mark job error", "job_id", job.ID, "error", terr)
		}
		return fmt.Errorf("enqueue job: %w", err)
	}

	slog.Info("job queued", "job_id", job.ID, "image_id", job.ImageID, "theme", theme)
	return c.JSON(http.StatusAccepted, BeginResponse{
		JobID:     job.ID,
		Status:    jobs.StatusQueued,
		StatusURL: "/api/spookify/status/" + job.ID,
	})
}

// resolveImage finds the upload for imageID. A client-supplied key must
// belong to that image.
func (h *SpookifyHandler) resolveImage(ctx context.Context, imageID, key string) (string, error) {
	if key != "" {
		if !strings.HasPrefix(key, blob.ImageKey(imageID, ".")) {
			return "", fmt.Errorf("image_key does not match image_id: %w", apperr.ErrValidation)
		}
		if _, err := h.blobs.Get(ctx, key); err != nil {
			return "", err
		}
		return key, nil
	}

	for _, ext := range []string{".jpg", ".png", ".webp"} {
		candidate := blob.ImageKey(imageID, ext)
		_, err := h.blobs.Get(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, blob.ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("image %s: %w", imageID, apperr.ErrNotFound)
}

type WorkerRequest struct {
	JobID string `json:"job_id"`
}

// Worker processes one job. It sits behind RequireWorkerToken and only
// accepts the job the token was issued for.
func (h *SpookifyHandler) Worker(c echo.Context) error {
	var req WorkerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.JobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "job_id is required")
	}

	authorized, ok := auth.WorkerJobID(c)
	if !ok || authorized != req.JobID {
		return echo.NewHTTPError(http.StatusForbidden, "token not valid for this job")
	}

	job, err := h.processor.Process(c.Request().Context(), req.JobID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (h *SpookifyHandler) Status(c echo.Context) error {
	job, err := h.jobs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// RunStylizeTask is the queue handler for KindStylize. A returned error
// makes the queue retry the task.
func (h *SpookifyHandler) RunStylizeTask(ctx context.Context, task queue.Task) error {
	var payload StylizeTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil || payload.JobID == "" {
		// nothing a retry could fix
		slog.Error("dropping malformed stylize task", "task_id", task.ID, "error", err)
		return nil
	}

	if h.trigger != nil {
		return h.trigger.Trigger(ctx, payload.JobID)
	}

	_, err := h.processor.Process(ctx, payload.JobID)
	if errors.Is(err, jobs.ErrNotFound) {
		slog.Error("dropping task for unknown job", "task_id", task.ID, "job_id", payload.JobID)
		return nil
	}
	return err
}

// FailStylizeTask is the dead-letter handler for KindStylize. The job moves to
// error so status polling ends instead of reporting queued forever.
func (h *SpookifyHandler) FailStylizeTask(ctx context.Context, task queue.Task, cause error) {
	var payload StylizeTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil || payload.JobID == "" {
		return
	}

	reason := fmt.Sprintf("stylization failed after %d attempts: %v", task.Attempts, cause)
	if _, err := h.processor.Fail(ctx, payload.JobID, reason); err != nil {
		slog.Error("failed to mark abandoned job", "job_id", payload.JobID, "error", err)
	}
}

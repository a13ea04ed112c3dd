package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loganlanou/aigifts/internal/apperr"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

var (
	ErrNotFound          = fmt.Errorf("job %w", apperr.ErrNotFound)
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// Input is what the customer asked for when the job was created.
type Input struct {
	Theme    string `json:"theme"`
	Prompt   string `json:"prompt"`
	ImageKey string `json:"image_key"`
}

type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	ImageID   string    `json:"image_id"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Input     Input     `json:"input"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransition reports whether from -> to moves the job forward.
// queued -> processing -> done|error. A queued job may also fail directly.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing || to == StatusError
	case StatusProcessing:
		return to == StatusDone || to == StatusError
	default:
		return false
	}
}

// Update is applied atomically together with a status transition.
type Update struct {
	Status    Status
	ResultURL string
	Error     string
}

type Store interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	Transition(ctx context.Context, id string, update Update) (Job, error)
}

func transitionError(id string, from, to Status) error {
	return fmt.Errorf("job %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
}

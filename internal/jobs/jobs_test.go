package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/loganlanou/aigifts/internal/blob"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStylizer struct {
	started chan struct{}
	release chan struct{}
	err     error
	prompts []string
}

func (s *stubStylizer) Stylize(ctx context.Context, source []byte, mimeType, prompt string) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte("styled:"), source...), nil
}

func newTestJob(t *testing.T, store Store, blobs blob.Store) Job {
	t.Helper()
	ctx := context.Background()

	imageID := ulid.Make().String()
	key := blob.ImageKey(imageID, ".png")
	_, err := blobs.Put(ctx, key, "image/png", []byte("photo"))
	require.NoError(t, err)

	job := Job{
		ID:      ulid.Make().String(),
		ImageID: imageID,
		Input:   Input{Theme: "spookify", Prompt: "make it spooky", ImageKey: key},
	}
	require.NoError(t, store.Create(ctx, job))
	return job
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusError, true},
		{StatusQueued, StatusDone, false},
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusQueued, false},
		{StatusDone, StatusProcessing, false},
		{StatusError, StatusDone, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestMemoryStore_CreateStartsQueued(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Job{ID: "job-1", ImageID: "img-1"}))

	job, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())

	assert.Error(t, store.Create(ctx, Job{ID: "job-1"}), "duplicate ids are rejected")

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_TransitionIsMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Job{ID: "job-1"}))

	_, err := store.Transition(ctx, "job-1", Update{Status: StatusDone})
	assert.True(t, errors.Is(err, ErrInvalidTransition), "queued cannot jump to done")

	_, err = store.Transition(ctx, "job-1", Update{Status: StatusProcessing})
	require.NoError(t, err)

	job, err := store.Transition(ctx, "job-1", Update{Status: StatusDone, ResultURL: "http://x/result.png"})
	require.NoError(t, err)
	assert.Equal(t, "http://x/result.png", job.ResultURL)

	_, err = store.Transition(ctx, "job-1", Update{Status: StatusProcessing})
	assert.True(t, errors.Is(err, ErrInvalidTransition), "done is terminal")
}

func TestProcessor_Success(t *testing.T) {
	store := NewMemoryStore()
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)
	stylizer := &stubStylizer{}
	job := newTestJob(t, store, blobs)

	done, err := NewProcessor(store, blobs, stylizer).Process(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusDone, done.Status)
	assert.Equal(t, "http://localhost:8000/public/uploads/results/"+job.ID+".png", done.ResultURL)
	assert.Equal(t, []string{"make it spooky"}, stylizer.prompts)

	data, err := blobs.Get(context.Background(), ResultKey(job.ID))
	require.NoError(t, err)
	assert.Equal(t, []byte("styled:photo"), data)
}

func TestProcessor_StylizeFailureRecordsError(t *testing.T) {
	store := NewMemoryStore()
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)
	job := newTestJob(t, store, blobs)

	failed, err := NewProcessor(store, blobs, &stubStylizer{err: errors.New("quota exceeded")}).Process(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, failed.Status)
	assert.Contains(t, failed.Error, "quota exceeded")
	assert.Empty(t, failed.ResultURL)
}

func TestProcessor_TerminalJobIsNoop(t *testing.T) {
	store := NewMemoryStore()
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)
	stylizer := &stubStylizer{}
	job := newTestJob(t, store, blobs)
	processor := NewProcessor(store, blobs, stylizer)

	_, err = processor.Process(context.Background(), job.ID)
	require.NoError(t, err)
	again, err := processor.Process(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusDone, again.Status)
	assert.Len(t, stylizer.prompts, 1, "redelivery must not stylize twice")
}

func TestProcessor_StatusNeverDoneBeforeCompletion(t *testing.T) {
	store := NewMemoryStore()
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)
	stylizer := &stubStylizer{started: make(chan struct{}), release: make(chan struct{})}
	job := newTestJob(t, store, blobs)
	ctx := context.Background()

	before, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, before.Status)

	finished := make(chan Job, 1)
	go func() {
		done, _ := NewProcessor(store, blobs, stylizer).Process(ctx, job.ID)
		finished <- done
	}()

	<-stylizer.started
	during, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, during.Status)

	close(stylizer.release)
	done := <-finished
	assert.Equal(t, StatusDone, done.Status)
}

func TestProcessor_MissingJob(t *testing.T) {
	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	_, err = NewProcessor(NewMemoryStore(), blobs, &stubStylizer{}).Process(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

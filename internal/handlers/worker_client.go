package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/loganlanou/aigifts/internal/auth"
)

// WorkerClient triggers jobs by calling the worker endpoint of another
// instance with a job-scoped token.
type WorkerClient struct {
	url        string
	signer     *auth.TokenSigner
	httpClient *http.Client
}

func NewWorkerClient(url string, signer *auth.TokenSigner) *WorkerClient {
	return &WorkerClient{
		url:    url,
		signer: signer,
		httpClient: &http.Client{
			// generation can take a while
			Timeout: 3 * time.Minute,
		},
	}
}

func (w *WorkerClient) Trigger(ctx context.Context, jobID string) error {
	token, err := w.signer.Sign(jobID)
	if err != nil {
		return err
	}

	body, err := json.Marshal(WorkerRequest{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call worker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("worker returned status %d: %s", resp.StatusCode, string(msg))
	}

	slog.Debug("worker accepted job", "job_id", jobID, "url", w.url)
	return nil
}

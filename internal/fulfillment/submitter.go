package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loganlanou/aigifts/internal/apperr"
)

const defaultTimeout = 30 * time.Second

// submitter calls a vendor API. With more than one base URL it tries them in
// order, moving on when a call fails at the transport level or returns a
// non-2xx status. That is how a staging endpoint falls back to production.
type submitter struct {
	vendor   string
	baseURLs []string
	headers  map[string]string
	client   *http.Client
}

func newSubmitter(vendor string, headers map[string]string, baseURLs ...string) *submitter {
	urls := make([]string, 0, len(baseURLs))
	for _, u := range baseURLs {
		if u = strings.TrimSuffix(strings.TrimSpace(u), "/"); u != "" {
			urls = append(urls, u)
		}
	}
	return &submitter{
		vendor:   vendor,
		baseURLs: urls,
		headers:  headers,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (s *submitter) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", s.vendor, err)
	}
	return s.do(ctx, http.MethodPost, path, body)
}

func (s *submitter) get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

func (s *submitter) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if len(s.baseURLs) == 0 {
		return nil, fmt.Errorf("%s: no base URL configured", s.vendor)
	}

	var lastErr error
	var lastBody []byte
	for i, base := range s.baseURLs {
		respBody, err := s.once(ctx, method, base+path, body)
		if err == nil {
			if i > 0 {
				slog.Info("vendor call succeeded on fallback endpoint", "vendor", s.vendor, "url", base+path)
			}
			return respBody, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		lastErr, lastBody = err, respBody
		if i < len(s.baseURLs)-1 {
			slog.Warn("vendor call failed, falling back",
				"vendor", s.vendor,
				"method", method,
				"url", base+path,
				"next", s.baseURLs[i+1],
				"error", err)
		}
	}
	return lastBody, lastErr
}

func (s *submitter) once(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	slog.Debug("calling vendor", "vendor", s.vendor, "method", method, "url", url)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s request failed: %w: %w", s.vendor, apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", s.vendor, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, &VendorError{
			Vendor:     s.vendor,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}
	return respBody, nil
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"bookworm/internal/config"
)

// Transport posts JSON to an OpenAI-compatible API, retrying 429 and 5xx
// responses with exponential backoff.
type Transport struct {
	backend    config.Backend
	client     *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewTransport creates a transport for the given backend.
func NewTransport(backend config.Backend, timeout time.Duration, maxRetries int) *Transport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Transport{
		backend:    backend,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		sleep:      sleepCtx,
	}
}

// Backend returns the resolved provider this transport talks to.
func (t *Transport) Backend() config.Backend { return t.backend }

// PostJSON sends body to url and returns the raw response payload.
func (t *Transport) PostJSON(ctx context.Context, url string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if err := t.sleep(ctx, t.delay(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		t.backend.Authorize(req)

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &statusError{status: resp.Status, retryAfter: resp.Header.Get("Retry-After"), body: payload}
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, &statusError{status: resp.Status, body: payload}
		}
		return payload, nil
	}
	return nil, fmt.Errorf("%s request failed after %d attempts: %w", t.backend.Provider, t.maxRetries+1, lastErr)
}

// delay honours Retry-After when the server sent one.
func (t *Transport) delay(attempt int, lastErr error) time.Duration {
	if se, ok := lastErr.(*statusError); ok && se.retryAfter != "" {
		if secs, err := strconv.Atoi(se.retryAfter); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return retryDelay(attempt)
}

type statusError struct {
	status     string
	retryAfter string
	body       []byte
}

func (e *statusError) Error() string {
	if len(e.body) == 0 {
		return e.status
	}
	const limit = 512
	body := e.body
	if len(body) > limit {
		body = body[:limit]
	}
	return fmt.Sprintf("%s: %s", e.status, bytes.TrimSpace(body))
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return 5 * time.Second
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

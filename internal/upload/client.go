// Package upload feeds recorded landmark frames to a running RepCoach server,
// as a capture client would.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/pose"
	"github.com/claude/repcoach/internal/session"
	"github.com/google/uuid"
)

const maxAttempts = 3

// Client sends frames to the RepCoach server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the RepCoach server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: time.Second,
	}
}

// CreateSession starts a live session for ex.
func (c *Client) CreateSession(ctx context.Context, ex exercise.ID) (session.Info, error) {
	var info session.Info
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions", map[string]string{"exercise": ex.String()}, http.StatusCreated, &info)
	return info, err
}

// SendFrame posts one recorded frame to a session, keeping its timestamp so
// the server debounces exactly as it did live. A failed frame is not resent:
// the server may already have pushed it into the smoothing window.
func (c *Client) SendFrame(ctx context.Context, id uuid.UUID, f models.RecordedFrame) (engine.Snapshot, error) {
	body := struct {
		TimestampMS int64           `json:"timestamp_ms"`
		Landmarks   []pose.Landmark `json:"landmarks"`
	}{f.TimeMS, f.Landmarks}

	var snap engine.Snapshot
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+id.String()+"/frames", body, http.StatusOK, &snap)
	return snap, err
}

// FinishSession ends a session and returns its final snapshot.
func (c *Client) FinishSession(ctx context.Context, id uuid.UUID) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+id.String(), nil, http.StatusOK, &snap)
	return snap, err
}

// do sends a JSON request and decodes the response into out. For idempotent
// methods, transport errors and 5xx responses are retried with exponential
// backoff, up to maxAttempts in total. POSTs are sent once and 4xx responses
// fail immediately.
func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var data []byte
	if in != nil {
		var err error
		if data, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	attempts := maxAttempts
	if method == http.MethodPost {
		attempts = 1
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == want {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decoding %s response: %w", path, err)
			}
			return nil
		}
		lastErr = fmt.Errorf("%s %s failed (status %d): %s", method, path, resp.StatusCode, bytes.TrimSpace(body))
		if resp.StatusCode < 500 {
			return lastErr
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

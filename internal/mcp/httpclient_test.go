package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "k" {
			t.Errorf("X-API-Key = %q, want %q", got, "k")
		}
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func TestListRecordings(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/recordings": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit=%q, want 5", got)
			}
			writeTestJSON(t, w, []models.RecordingSummary{
				{ID: id, Exercise: exercise.Curl, FrameCount: 300, RepCount: 12},
			})
		},
	})
	defer ts.Close()

	recs, err := NewHTTPClient(ts.URL+"/", "k").ListRecordings(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recordings, want 1", len(recs))
	}
	if recs[0].ID != id || recs[0].Exercise != exercise.Curl || recs[0].RepCount != 12 {
		t.Errorf("recording = %+v", recs[0])
	}
}

func TestGetRecording(t *testing.T) {
	id := uuid.New()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/recordings/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.Recording{
				ID:         id,
				Exercise:   exercise.Squat,
				StartedAt:  start,
				FrameCount: 1,
				Frames:     []models.RecordedFrame{{TimeMS: start.UnixMilli()}},
			})
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL, "k").GetRecording(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Exercise != exercise.Squat || len(rec.Frames) != 1 || !rec.StartedAt.Equal(start) {
		t.Errorf("recording = %+v", rec)
	}
}

// TestGetRecordingNotFound verifies a 404 maps to storage.ErrNotFound so tools
// can report it the same way for local and remote sources.
func TestGetRecordingNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, "k").GetRecording(context.Background(), uuid.New())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/recordings": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL, "k").ListRecordings(context.Background(), 1); err == nil {
		t.Error("expected error for 500 response")
	}
}

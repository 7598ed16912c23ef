package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/pose"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

type memSource struct {
	recs map[uuid.UUID]*models.Recording
}

func (m *memSource) ListRecordings(_ context.Context, limit int) ([]models.RecordingSummary, error) {
	var out []models.RecordingSummary
	for _, r := range m.recs {
		if len(out) == limit {
			break
		}
		out = append(out, r.Summary())
	}
	return out, nil
}

func (m *memSource) GetRecording(_ context.Context, id uuid.UUID) (*models.Recording, error) {
	r, ok := m.recs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

var t0 = time.Date(2026, 4, 2, 7, 0, 0, 0, time.UTC)

func curlLandmarks(deg float64) []pose.Landmark {
	def := exercise.Lookup(exercise.Curl)
	lms := make([]pose.Landmark, pose.NumLandmarks)
	phi := (-90 + deg) * math.Pi / 180
	pts := []pose.Landmark{
		{X: 0.5, Y: 0.3, Visibility: 0.9},
		{X: 0.5, Y: 0.5, Visibility: 0.9},
		{X: 0.5 + 0.2*math.Cos(phi), Y: 0.5 + 0.2*math.Sin(phi), Visibility: 0.9},
	}
	for i := range pts {
		lms[def.Right[i]] = pts[i]
	}
	return lms
}

// curlRecording is two curls 600 ms apart followed by a third after 1.5 s,
// then one frame with nobody in view.
func curlRecording() *models.Recording {
	steps := []struct {
		deg float64
		at  time.Duration
	}{
		{170, 0},
		{45, 200 * time.Millisecond},
		{170, 400 * time.Millisecond},
		{45, 800 * time.Millisecond},
		{170, 1200 * time.Millisecond},
		{45, 2300 * time.Millisecond},
	}
	rec := &models.Recording{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Exercise:  exercise.Curl,
		StartedAt: t0,
		EndedAt:   t0.Add(3 * time.Second),
		RepCount:  2,
	}
	for _, st := range steps {
		rec.Frames = append(rec.Frames, models.RecordedFrame{
			TimeMS:    t0.Add(st.at).UnixMilli(),
			Landmarks: curlLandmarks(st.deg),
		})
	}
	rec.Frames = append(rec.Frames, models.RecordedFrame{TimeMS: t0.Add(3 * time.Second).UnixMilli()})
	rec.FrameCount = len(rec.Frames)
	return rec
}

func newTestHandlers(recs ...*models.Recording) *handlers {
	src := &memSource{recs: make(map[uuid.UUID]*models.Recording)}
	for _, r := range recs {
		src.recs[r.ID] = r
	}
	return &handlers{
		ds:   src,
		opts: engine.Options{WindowSize: 1},
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestReplayRecording(t *testing.T) {
	rec := curlRecording()
	h := newTestHandlers(rec)

	res, err := h.replayRecording(context.Background(), callRequest(map[string]any{"id": rec.ID.String()}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var report replayReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatal(err)
	}
	if report.RepCount != 2 || len(report.Reps) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.Reps[0].Frame != 1 || report.Reps[1].Frame != 5 || report.Reps[1].OffsetMS != 2300 {
		t.Errorf("reps = %+v", report.Reps)
	}
	if report.Evaluated != 6 || report.NoBody != 1 || report.LowConfidence != 0 {
		t.Errorf("frame outcomes = %d/%d/%d", report.Evaluated, report.NoBody, report.LowConfidence)
	}
	if report.Feedback["Extend arm fully."] != 2 {
		t.Errorf("feedback = %v", report.Feedback)
	}
}

// TestReplayDebounceOverride verifies a shorter debounce counts the curl the
// default setting suppresses.
func TestReplayDebounceOverride(t *testing.T) {
	rec := curlRecording()
	h := newTestHandlers(rec)

	res, _ := h.replayRecording(context.Background(), callRequest(map[string]any{
		"id":          rec.ID.String(),
		"debounce_ms": 300,
	}))
	var report replayReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatal(err)
	}
	if report.RepCount != 3 {
		t.Errorf("reps = %d, want 3", report.RepCount)
	}
}

func TestToolErrors(t *testing.T) {
	rec := curlRecording()
	h := newTestHandlers(rec)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing id", map[string]any{}},
		{"bad id", map[string]any{"id": "nope"}},
		{"unknown id", map[string]any{"id": uuid.New().String()}},
		{"bad window", map[string]any{"id": rec.ID.String(), "window_size": -1}},
		{"bad debounce", map[string]any{"id": rec.ID.String(), "debounce_ms": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.replayRecording(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Error("expected tool error result")
			}
		})
	}
}

func TestGetRecordingSummary(t *testing.T) {
	rec := curlRecording()
	h := newTestHandlers(rec)

	res, _ := h.getRecordingSummary(context.Background(), callRequest(map[string]any{"id": rec.ID.String()}))
	var sum recordingSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.DurationSeconds != 3 || math.Abs(sum.RepsPerMinute-40) > 1e-9 || sum.FrameCount != 7 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestListExercisesTool(t *testing.T) {
	h := newTestHandlers()
	res, _ := h.listExercises(context.Background(), callRequest(nil))
	var defs []exercise.Definition
	if err := json.Unmarshal([]byte(resultText(t, res)), &defs); err != nil {
		t.Fatal(err)
	}
	if len(defs) != 4 {
		t.Errorf("got %d exercises, want 4", len(defs))
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(&memSource{}, engine.DefaultOptions(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	tools := s.ListTools()
	for _, name := range []string{"list_exercises", "list_recordings", "get_recording_summary", "replay_recording"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/repcoach/internal/engine"
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultListLimit = 20

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the supported exercises with their joint triplets, UP/DOWN/correction angle thresholds (degrees) and feedback strings."),
)

var toolListRecordings = mcp.NewTool("list_recordings",
	mcp.WithDescription("List stored landmark recordings, newest first. Each recording is one exercise segment of a live session."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of recordings to return. Defaults to 20.")),
)

var toolGetRecordingSummary = mcp.NewTool("get_recording_summary",
	mcp.WithDescription("Summarize one recording: exercise, duration, frame and rep counts, reps per minute."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Recording ID (UUID)")),
)

var toolReplayRecording = mcp.NewTool("replay_recording",
	mcp.WithDescription("Replay a recording through the rep counter. Returns when each repetition was counted, how often each feedback message was shown, and how many frames could not be evaluated. Engine tuning can be overridden to test other settings."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Recording ID (UUID)")),
	mcp.WithNumber("window_size", mcp.Description("Smoothing window length in frames. Defaults to the server setting.")),
	mcp.WithNumber("debounce_ms", mcp.Description("Minimum milliseconds between counted reps. Defaults to the server setting.")),
)

// recordingSummary is the get_recording_summary result.
type recordingSummary struct {
	models.RecordingSummary
	DurationSeconds float64 `json:"duration_seconds"`
	RepsPerMinute   float64 `json:"reps_per_minute"`
}

// repEvent marks the frame on which a repetition was counted.
type repEvent struct {
	Rep      int   `json:"rep"`
	Frame    int   `json:"frame"`
	OffsetMS int64 `json:"offset_ms"`
	Angle    int   `json:"angle"`
}

// replayReport is the replay_recording result.
type replayReport struct {
	Recording     models.RecordingSummary `json:"recording"`
	RepCount      int                     `json:"rep_count"`
	Reps          []repEvent              `json:"reps"`
	Feedback      map[string]int          `json:"feedback"`
	Evaluated     int                     `json:"evaluated_frames"`
	LowConfidence int                     `json:"low_confidence_frames"`
	NoBody        int                     `json:"no_body_frames"`
}

func summarize(rec *models.Recording) recordingSummary {
	out := recordingSummary{RecordingSummary: rec.Summary()}
	d := rec.EndedAt.Sub(rec.StartedAt)
	out.DurationSeconds = d.Seconds()
	if d > 0 {
		out.RepsPerMinute = float64(rec.RepCount) / d.Minutes()
	}
	return out
}

func replay(rec *models.Recording, opts engine.Options) replayReport {
	frames := rec.EngineFrames()
	snaps := engine.Replay(rec.Exercise, frames, opts)

	report := replayReport{
		Recording: rec.Summary(),
		Reps:      []repEvent{},
		Feedback:  make(map[string]int),
	}
	prev := 0
	for i, snap := range snaps {
		report.Feedback[snap.Feedback]++
		switch {
		case snap.Side != "":
			report.Evaluated++
		case snap.Feedback == engine.FeedbackNoBody:
			report.NoBody++
		default:
			report.LowConfidence++
		}
		if snap.RepCount > prev {
			report.Reps = append(report.Reps, repEvent{
				Rep:      snap.RepCount,
				Frame:    i,
				OffsetMS: frames[i].Time.Sub(frames[0].Time).Milliseconds(),
				Angle:    snap.Angle,
			})
			prev = snap.RepCount
		}
	}
	report.RepCount = prev
	return report
}

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(exercise.All())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultListLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	recs, err := h.ds.ListRecordings(ctx, limit)
	if err != nil {
		h.log.Error("mcp list_recordings", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(recs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecordingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := h.loadRecording(ctx, req, "get_recording_summary")
	if errResult != nil {
		return errResult, nil
	}

	result, err := mcp.NewToolResultJSON(summarize(rec))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) replayRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, errResult := h.loadRecording(ctx, req, "replay_recording")
	if errResult != nil {
		return errResult, nil
	}

	opts := h.opts
	if n := req.GetInt("window_size", 0); n != 0 {
		if n < 1 {
			return mcp.NewToolResultError("window_size must be positive"), nil
		}
		opts.WindowSize = n
	}
	if ms := req.GetInt("debounce_ms", 0); ms != 0 {
		if ms < 0 {
			return mcp.NewToolResultError("debounce_ms must not be negative"), nil
		}
		opts.Debounce = time.Duration(ms) * time.Millisecond
	}

	result, err := mcp.NewToolResultJSON(replay(rec, opts))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// loadRecording resolves the id argument. A non-nil result is the error to
// return to the client.
func (h *handlers) loadRecording(ctx context.Context, req mcp.CallToolRequest, tool string) (*models.Recording, *mcp.CallToolResult) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return nil, mcp.NewToolResultError("id parameter is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, mcp.NewToolResultError("invalid recording ID")
	}

	rec, err := h.ds.GetRecording(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, mcp.NewToolResultError("recording not found")
	}
	if err != nil {
		h.log.Error("mcp "+tool, "id", id, "error", err)
		return nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	return rec, nil
}

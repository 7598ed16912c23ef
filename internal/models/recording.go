package models

import (
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/pose"
	"github.com/google/uuid"
)

// RecordedFrame is one landmark frame as captured by a session. TimeMS is
// milliseconds since the Unix epoch.
type RecordedFrame struct {
	TimeMS    int64           `json:"t"`
	Landmarks []pose.Landmark `json:"landmarks"`
}

// Frame converts the recorded frame back into engine input.
func (f RecordedFrame) Frame() pose.Frame {
	return pose.Frame{Landmarks: f.Landmarks, Time: time.UnixMilli(f.TimeMS).UTC()}
}

// NewRecordedFrame captures f for storage.
func NewRecordedFrame(f pose.Frame) RecordedFrame {
	return RecordedFrame{TimeMS: f.Time.UnixMilli(), Landmarks: f.Landmarks}
}

// Recording is the landmark stream of one exercise segment of a session,
// kept so the segment can be replayed through the engine.
type Recording struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	Exercise   exercise.ID     `json:"exercise"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    time.Time       `json:"ended_at"`
	FrameCount int             `json:"frame_count"`
	RepCount   int             `json:"rep_count"`
	Frames     []RecordedFrame `json:"frames,omitempty"`
}

// EngineFrames converts all recorded frames to engine input.
func (r *Recording) EngineFrames() []pose.Frame {
	out := make([]pose.Frame, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Frame()
	}
	return out
}

// RecordingSummary is a Recording without its frames, used for listings.
type RecordingSummary struct {
	ID         uuid.UUID   `json:"id"`
	SessionID  uuid.UUID   `json:"session_id"`
	Exercise   exercise.ID `json:"exercise"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    time.Time   `json:"ended_at"`
	FrameCount int         `json:"frame_count"`
	RepCount   int         `json:"rep_count"`
}

// Summary drops the frames.
func (r *Recording) Summary() RecordingSummary {
	return RecordingSummary{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Exercise:   r.Exercise,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		FrameCount: r.FrameCount,
		RepCount:   r.RepCount,
	}
}

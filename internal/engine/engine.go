package engine

import (
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/pose"
)

// Engine holds the State of one live session. It is not safe for concurrent
// use; a single capture loop, or a caller-held lock, must serialize calls.
type Engine struct {
	state State
	last  Snapshot
	opts  Options
	now   func() time.Time
}

// New creates an engine for the given exercise. It panics if id is not in the
// catalog.
func New(id exercise.ID, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{opts: opts, now: time.Now}
	e.Reset(id)
	return e
}

// SetClock replaces the clock used by Process. Tests use it to control the
// debounce interval.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Reset discards all progress and starts the given exercise from scratch.
func (e *Engine) Reset(id exercise.ID) Snapshot {
	e.state = NewState(id, e.opts)
	e.last = e.state.Snapshot()
	return e.last
}

// Process evaluates a landmark set observed now. A nil set means no body
// was detected.
func (e *Engine) Process(landmarks []pose.Landmark) Snapshot {
	return e.ProcessFrame(pose.Frame{Landmarks: landmarks, Time: e.now()})
}

// ProcessFrame evaluates a timestamped frame. A zero Time is stamped with the
// engine clock.
func (e *Engine) ProcessFrame(f pose.Frame) Snapshot {
	if f.Time.IsZero() {
		f.Time = e.now()
	}
	e.state, e.last = Step(e.state, f, e.opts)
	return e.last
}

// Snapshot returns the output of the most recent call, or the post-reset
// snapshot if no frame has been processed.
func (e *Engine) Snapshot() Snapshot { return e.last }

// State returns the current machine state. Its Window is only valid until
// the next frame; use Window.Clone to keep it.
func (e *Engine) State() State { return e.state }

// Exercise returns the active exercise.
func (e *Engine) Exercise() exercise.ID { return e.state.Exercise }

// Replay folds recorded frames through a fresh state and returns one snapshot
// per frame. The result depends only on its inputs.
func Replay(id exercise.ID, frames []pose.Frame, opts Options) []Snapshot {
	s := NewState(id, opts)
	out := make([]Snapshot, 0, len(frames))
	for _, f := range frames {
		var snap Snapshot
		s, snap = Step(s, f, opts)
		out = append(out, snap)
	}
	return out
}

// Package engine turns a stream of pose landmark frames into repetition
// counts and coaching feedback.
//
// The core is a pure transition function, Step, over an immutable State. It
// smooths the joint angle of the better-observed side, then runs a two-phase
// (UP/DOWN) machine with hysteresis and a minimum interval between counted
// repetitions. Engine wraps a State for callers that process a live feed.
package engine

import (
	"math"
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/pose"
)

// Phase is the position of the state machine in the UP/DOWN cycle.
type Phase string

const (
	PhaseUp   Phase = "UP"
	PhaseDown Phase = "DOWN"
)

// Feedback shown when a frame cannot be evaluated.
const (
	FeedbackNoBody = "Body not detected"
	FeedbackAdjust = "Adjust position"
)

// DefaultDebounce is the minimum time between two counted repetitions.
const DefaultDebounce = 1000 * time.Millisecond

// Options tunes the engine. Zero fields take their defaults.
type Options struct {
	WindowSize    int
	Debounce      time.Duration
	MinVisibility float64
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		WindowSize:    DefaultWindowSize,
		Debounce:      DefaultDebounce,
		MinVisibility: DefaultMinVisibility,
	}
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MinVisibility <= 0 {
		o.MinVisibility = DefaultMinVisibility
	}
	return o
}

// State is everything the machine remembers between frames. Step returns the
// next State; its Window shares the input's backing array, so the input is
// superseded once Step returns.
type State struct {
	Exercise exercise.ID
	Reps     int
	Phase    Phase
	LastRep  time.Time // zero until the first repetition
	Window   Window
	Feedback string
}

// NewState returns the state right after selecting or resetting an exercise.
// It panics if id is not in the catalog.
func NewState(id exercise.ID, opts Options) State {
	def := exercise.Lookup(id)
	opts = opts.withDefaults()
	return State{
		Exercise: id,
		Phase:    PhaseUp,
		Window:   NewWindow(opts.WindowSize),
		Feedback: def.Feedback.Start,
	}
}

// Snapshot is the per-frame output handed to the presentation layer.
type Snapshot struct {
	RepCount int    `json:"rep_count"`
	Feedback string `json:"feedback"`
	Angle    int    `json:"angle"`
	Side     Side   `json:"side,omitempty"`
}

// Snapshot reports the state without evaluating a frame.
func (s State) Snapshot() Snapshot {
	return Snapshot{RepCount: s.Reps, Feedback: s.Feedback}
}

// Step applies one frame to s and returns the next state with the output
// snapshot. Frames must arrive in non-decreasing time order.
func Step(s State, f pose.Frame, opts Options) (State, Snapshot) {
	opts = opts.withDefaults()

	if len(f.Landmarks) == 0 {
		return s, Snapshot{RepCount: s.Reps, Feedback: FeedbackNoBody}
	}

	def := exercise.Lookup(s.Exercise)
	sel, ok := SelectSide(f.Landmarks, def, opts.MinVisibility)
	if !ok {
		return s, Snapshot{RepCount: s.Reps, Feedback: FeedbackAdjust}
	}

	raw := Angle(f.Landmarks[sel.Triplet[0]], f.Landmarks[sel.Triplet[1]], f.Landmarks[sel.Triplet[2]])
	if math.IsNaN(raw) {
		return s, Snapshot{RepCount: s.Reps, Feedback: FeedbackAdjust}
	}

	next := s
	var angle float64
	next.Window, angle = s.Window.Push(raw)

	// Rule order matters: the correction overlay is applied last and may
	// replace the down message set in the same frame.
	if angle > def.UpAngle {
		next.Phase = PhaseUp
		next.Feedback = def.Feedback.Up
	}
	if angle < def.DownAngle && next.Phase == PhaseUp && f.Time.Sub(next.LastRep) > opts.Debounce {
		next.Phase = PhaseDown
		next.Feedback = def.Feedback.Down
		next.Reps++
		next.LastRep = f.Time
	}
	if angle < def.CorrectionAngle {
		next.Feedback = def.Feedback.Correction
	}

	return next, Snapshot{
		RepCount: next.Reps,
		Feedback: next.Feedback,
		Angle:    int(math.Round(angle)),
		Side:     sel.Side,
	}
}

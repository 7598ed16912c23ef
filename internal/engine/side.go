package engine

import (
	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/pose"
)

// Side names the limb whose triplet was evaluated.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// DefaultMinVisibility is the visibility floor below which a frame is
// treated as low confidence.
const DefaultMinVisibility = 0.5

// Selection is the outcome of comparing both sides of a frame.
type Selection struct {
	Side            Side
	Triplet         [3]int
	LeftVisibility  float64
	RightVisibility float64
}

// SelectSide picks the triplet with the strictly higher mean visibility; a tie
// goes to the left side. ok is false when neither side reaches minVisibility.
func SelectSide(landmarks []pose.Landmark, def exercise.Definition, minVisibility float64) (sel Selection, ok bool) {
	sel.LeftVisibility = meanVisibility(landmarks, def.Left)
	sel.RightVisibility = meanVisibility(landmarks, def.Right)

	if sel.RightVisibility > sel.LeftVisibility {
		sel.Side, sel.Triplet = SideRight, def.Right
	} else {
		sel.Side, sel.Triplet = SideLeft, def.Left
	}

	if max(sel.LeftVisibility, sel.RightVisibility) < minVisibility {
		return sel, false
	}
	return sel, true
}

// meanVisibility averages the visibility of a triplet. A triplet that points
// outside the landmark set scores 0 so it can never be selected.
func meanVisibility(landmarks []pose.Landmark, triplet [3]int) float64 {
	var sum float64
	for _, idx := range triplet {
		lm, ok := pose.At(landmarks, idx)
		if !ok {
			return 0
		}
		sum += lm.Visibility
	}
	return sum / 3
}

package engine

import (
	"math"
	"time"

	"github.com/claude/repcoach/internal/exercise"
	"github.com/claude/repcoach/internal/pose"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// bentJoint places a, b, c so that the interior angle at b is deg degrees.
func bentJoint(deg float64) (a, b, c pose.Landmark) {
	b = pose.Landmark{X: 0.5, Y: 0.5}
	a = pose.Landmark{X: 0.5, Y: 0.3}
	phi := (-90 + deg) * math.Pi / 180
	c = pose.Landmark{X: 0.5 + 0.2*math.Cos(phi), Y: 0.5 + 0.2*math.Sin(phi)}
	return a, b, c
}

// body builds a full landmark set where both sides of def show deg degrees,
// with the given visibilities.
func body(def exercise.Definition, deg, leftVis, rightVis float64) []pose.Landmark {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	a, b, c := bentJoint(deg)
	for i, p := range []pose.Landmark{a, b, c} {
		p.Visibility = leftVis
		lms[def.Left[i]] = p
	}
	for i, p := range []pose.Landmark{a, b, c} {
		p.Visibility = rightVis
		lms[def.Right[i]] = p
	}
	return lms
}

// feed runs raw angles through Step with frames spaced by gap starting at start.
func feed(s State, def exercise.Definition, start time.Time, gap time.Duration, angles ...float64) (State, []Snapshot) {
	var snaps []Snapshot
	for i, deg := range angles {
		var snap Snapshot
		f := pose.Frame{Landmarks: body(def, deg, 0.9, 0.9), Time: start.Add(time.Duration(i) * gap)}
		s, snap = Step(s, f, DefaultOptions())
		snaps = append(snaps, snap)
	}
	return s, snaps
}

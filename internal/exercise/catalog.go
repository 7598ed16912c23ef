// Package exercise is the closed catalog of exercises the rep counter knows.
package exercise

import (
	"fmt"
	"strings"

	"github.com/claude/repcoach/internal/pose"
)

// ID identifies a catalog entry. The set is closed: only the constants below
// are valid.
type ID uint8

const (
	Squat ID = iota
	Pushup
	Curl
	Neck

	numIDs
)

// Feedback holds the coaching strings shown for each phase of an exercise.
type Feedback struct {
	Start      string `json:"start"`
	Up         string `json:"up"`
	Down       string `json:"down"`
	Correction string `json:"correction"`
}

// Definition describes how to measure and coach one exercise. Angles are in
// degrees at the middle joint of each triplet.
type Definition struct {
	ID              ID       `json:"id"`
	Name            string   `json:"name"`
	Left            [3]int   `json:"left"`
	Right           [3]int   `json:"right"`
	UpAngle         float64  `json:"up_angle"`
	DownAngle       float64  `json:"down_angle"`
	CorrectionAngle float64  `json:"correction_angle"`
	Feedback        Feedback `json:"feedback"`
}

var slugs = [numIDs]string{
	Squat:  "squat",
	Pushup: "pushup",
	Curl:   "curl",
	Neck:   "neck",
}

var catalog = [numIDs]Definition{
	Squat: {
		ID:              Squat,
		Name:            "Squats",
		Left:            [3]int{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
		Right:           [3]int{pose.RightHip, pose.RightKnee, pose.RightAnkle},
		UpAngle:         150,
		DownAngle:       100,
		CorrectionAngle: 70,
		Feedback: Feedback{
			Start:      "Stand in frame (Side View)",
			Up:         "Go down...",
			Down:       "Good depth! Up.",
			Correction: "Too low! Careful.",
		},
	},
	Pushup: {
		ID:              Pushup,
		Name:            "Pushups",
		Left:            [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
		Right:           [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
		UpAngle:         160,
		DownAngle:       90,
		CorrectionAngle: 60,
		Feedback: Feedback{
			Start:      "Plank position (Side View)",
			Up:         "Lower chest...",
			Down:       "Push up!",
			Correction: "Keep back straight!",
		},
	},
	Curl: {
		ID:              Curl,
		Name:            "Bicep Curls",
		Left:            [3]int{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
		Right:           [3]int{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
		UpAngle:         150,
		DownAngle:       60,
		CorrectionAngle: 30,
		Feedback: Feedback{
			Start:      "Hold weights (Side View)",
			Up:         "Curl up...",
			Down:       "Extend arm fully.",
			Correction: "Full range of motion!",
		},
	},
	Neck: {
		ID:              Neck,
		Name:            "Neck Stretch",
		Left:            [3]int{pose.Nose, pose.LeftShoulder, pose.LeftHip},
		Right:           [3]int{pose.Nose, pose.RightShoulder, pose.RightHip},
		UpAngle:         160,
		DownAngle:       140,
		CorrectionAngle: 130,
		Feedback: Feedback{
			Start:      "Stand straight, look forward",
			Up:         "Tilt head...",
			Down:       "Good stretch! Up.",
			Correction: "Gentle! Don't force.",
		},
	},
}

// Valid reports whether id is one of the catalog constants.
func (id ID) Valid() bool {
	return id < numIDs
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("exercise(%d)", uint8(id))
	}
	return slugs[id]
}

// MarshalText encodes the ID as its slug ("squat", "pushup", ...).
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown exercise id %d", uint8(id))
	}
	return []byte(slugs[id]), nil
}

// UnmarshalText decodes a slug produced by MarshalText.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse resolves a slug to its ID. This is the validation step for values
// arriving from outside the process; Lookup assumes it already happened.
func Parse(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, slug := range slugs {
		if slug == s {
			return ID(id), nil
		}
	}
	return 0, fmt.Errorf("unknown exercise %q", s)
}

// Lookup returns the definition for id. It panics for an id outside the
// catalog: callers only ever hold IDs produced by Parse or the constants.
func Lookup(id ID) Definition {
	if !id.Valid() {
		panic(fmt.Sprintf("exercise: lookup of unknown id %d", uint8(id)))
	}
	return catalog[id]
}

// All returns every definition in catalog order.
func All() []Definition {
	defs := make([]Definition, len(catalog))
	copy(defs, catalog[:])
	return defs
}

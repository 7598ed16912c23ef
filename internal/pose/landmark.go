// Package pose holds the landmark types supplied by the external pose detector.
package pose

import "time"

// MediaPipe pose landmark indices used by the exercise catalog.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28

	// NumLandmarks is the size of a full MediaPipe pose landmark set.
	NumLandmarks = 33
)

// Landmark is one joint position in normalized image coordinates plus the
// detector's visibility score in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility"`
}

// Frame is one observation from the detector. A nil Landmarks slice means no
// body was detected in the frame.
type Frame struct {
	Landmarks []Landmark
	Time      time.Time
}

// At returns the landmark at index i, or false if the set does not contain it.
func At(landmarks []Landmark, i int) (Landmark, bool) {
	if i < 0 || i >= len(landmarks) {
		return Landmark{}, false
	}
	return landmarks[i], true
}

package engine

import (
	"math"

	"github.com/claude/repcoach/internal/pose"
)

// Angle returns the interior angle at b formed by the rays b→a and b→c, in
// degrees within [0, 180]. Only X and Y are used.
func Angle(a, b, c pose.Landmark) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(radians * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}

package interact

import (
	"math"

	"github.com/matsen/relgraph/internal/geom"
)

// Zoom limits and wheel sensitivity.
const (
	MinScale         = 0.2
	MaxScale         = 8.0
	WheelSensitivity = 0.002
)

// Viewport is the pan/zoom transform: screen = world*K + (X, Y). It never
// touches node coordinates.
type Viewport struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the untransformed viewport.
func Identity() Viewport {
	return Viewport{K: 1}
}

// ToScreen maps a world point to the screen.
func (v Viewport) ToScreen(w geom.Point) geom.Point {
	return geom.Point{X: w.X*v.K + v.X, Y: w.Y*v.K + v.Y}
}

// ToWorld maps a screen point to world coordinates.
func (v Viewport) ToWorld(s geom.Point) geom.Point {
	return geom.Point{X: (s.X - v.X) / v.K, Y: (s.Y - v.Y) / v.K}
}

// Pan translates the viewport by a screen-space delta.
func (v Viewport) Pan(d geom.Point) Viewport {
	v.X += d.X
	v.Y += d.Y
	return v
}

// ZoomAt scales by factor keeping the world point under at fixed. The
// resulting scale is clamped to [MinScale, MaxScale].
func (v Viewport) ZoomAt(factor float64, at geom.Point) Viewport {
	return v.ScaleAt(v.K*factor, at)
}

// ScaleAt sets the scale to k, clamped, keeping the world point under at
// fixed.
func (v Viewport) ScaleAt(k float64, at geom.Point) Viewport {
	w := v.ToWorld(at)
	k = geom.Clamp(k, MinScale, MaxScale)
	return Viewport{
		X: at.X - w.X*k,
		Y: at.Y - w.Y*k,
		K: k,
	}
}

// Wheel zooms for a wheel event with the given vertical delta.
func (v Viewport) Wheel(deltaY float64, at geom.Point) Viewport {
	return v.ZoomAt(math.Pow(2, -deltaY*WheelSensitivity), at)
}

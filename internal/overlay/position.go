// Package overlay places the hover tooltip next to the pointer and limits
// its updates to one per frame.
package overlay

import "github.com/matsen/relgraph/internal/geom"

// Tooltip placement constants, in pixels and as a fraction of the
// container width.
const (
	FlipFraction = 0.65
	OffsetX      = 12.0
	OffsetY      = -8.0
)

// Side says which side of the pointer the tooltip sits on.
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)

// Anchor is a tooltip position relative to the container. For SideLeft the
// tooltip's right edge sits at X; for SideRight its left edge does.
type Anchor struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Side Side    `json:"side"`
}

// Position anchors the tooltip for a pointer given in page coordinates over
// a container occupying bounds. Past FlipFraction of the width the tooltip
// flips to the left of the pointer so it stays inside the container.
func Position(pointer geom.Point, bounds geom.Rect) Anchor {
	relX := pointer.X - bounds.Left
	relY := pointer.Y - bounds.Top
	a := Anchor{Y: relY + OffsetY}
	if relX > FlipFraction*bounds.Width {
		a.Side = SideLeft
		a.X = relX - OffsetX
	} else {
		a.Side = SideRight
		a.X = relX + OffsetX
	}
	return a
}

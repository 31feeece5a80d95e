// Package viz turns a laid-out graph into render primitives: a Scene, a
// static SVG and a self-contained HTML page.
package viz

import "github.com/matsen/relgraph/internal/interact"

// Scene holds everything a renderer needs for one frame.
type Scene struct {
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Viewport interact.Viewport `json:"viewport"`
	Filter   string            `json:"filter,omitempty"`

	Nodes  []Node        `json:"nodes"`
	Edges  []Edge        `json:"edges"`
	Legend []LegendEntry `json:"legend"`
}

// Node is one drawn node.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Cluster  string  `json:"cluster"`
	Color    string  `json:"color"`
	Portrait string  `json:"portrait,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Pinned   bool    `json:"pinned,omitempty"`

	// Degree sizes the label and feeds the tooltip.
	Degree int `json:"degree"`
}

// Edge is one drawn edge. Directed edges carry an arrow toward the side
// that receives more interactions.
type Edge struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Weight     float64 `json:"weight"`
	Width      float64 `json:"width"`
	Asymmetric bool    `json:"asymmetric"`
	Direction  string  `json:"direction,omitempty"`
	AToB       int     `json:"aToB"`
	BToA       int     `json:"bToA"`
	Threads    int     `json:"threads"`

	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// LegendEntry is one active cluster with its color.
type LegendEntry struct {
	ClusterID string `json:"clusterId"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	Count     int    `json:"count"`
}

// IsEmpty returns true if the scene has no nodes.
func (s Scene) IsEmpty() bool {
	return len(s.Nodes) == 0
}

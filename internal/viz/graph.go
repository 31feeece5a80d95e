package viz

import (
	"math"

	"github.com/matsen/relgraph/internal/cluster"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/layout"
)

// Edge widths in pixels.
const (
	MinEdgeWidth = 1.0
	MaxEdgeWidth = 6.0
)

// SceneConfig carries the drawing parameters that do not come from the
// layout itself.
type SceneConfig struct {
	Width      float64
	Height     float64
	NodeRadius float64

	// Clusters supplies legend labels; clusters without one use their ID.
	Clusters []graph.Cluster
}

// EdgeWidth maps an edge weight to a stroke width.
func EdgeWidth(weight float64) float64 {
	return math.Max(MinEdgeWidth, math.Min(MaxEdgeWidth, MinEdgeWidth+weight*0.5))
}

// BuildScene combines engine positions with the active view. Nodes missing
// from positions are skipped along with their edges.
func BuildScene(positions []layout.Position, view cluster.View, colors *cluster.Colors, vp interact.Viewport, cfg SceneConfig) Scene {
	pos := make(map[string]layout.Position, len(positions))
	for _, p := range positions {
		pos[p.ID] = p
	}

	degree := make(map[string]int)
	for _, e := range view.Edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	scene := Scene{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Viewport: vp,
		Filter:   view.ClusterID,
		Nodes:    make([]Node, 0, len(view.Nodes)),
		Edges:    make([]Edge, 0, len(view.Edges)),
	}

	counts := make(map[string]int)
	for _, n := range view.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		counts[n.ClusterID]++
		scene.Nodes = append(scene.Nodes, Node{
			ID:       n.ID,
			Label:    n.Label(),
			Cluster:  n.ClusterID,
			Color:    colors.Color(n.ClusterID),
			Portrait: n.Portrait,
			X:        p.X,
			Y:        p.Y,
			Radius:   cfg.NodeRadius,
			Pinned:   p.Pinned,
			Degree:   degree[n.ID],
		})
	}

	for _, e := range view.Edges {
		s, okS := pos[e.Source]
		t, okT := pos[e.Target]
		if !okS || !okT {
			continue
		}
		c := e.Classify()
		scene.Edges = append(scene.Edges, Edge{
			ID:         e.ID(),
			Source:     e.Source,
			Target:     e.Target,
			Weight:     e.Weight,
			Width:      EdgeWidth(e.Weight),
			Asymmetric: c.Asymmetric,
			Direction:  string(c.Dominant),
			AToB:       e.AToB,
			BToA:       e.BToA,
			Threads:    e.Threads,
			X1:         s.X,
			Y1:         s.Y,
			X2:         t.X,
			Y2:         t.Y,
		})
	}

	labels := make(map[string]string, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		labels[c.ID] = c.Label
	}
	for _, id := range view.ClusterOrder {
		label := labels[id]
		if label == "" {
			label = id
		}
		scene.Legend = append(scene.Legend, LegendEntry{
			ClusterID: id,
			Label:     label,
			Color:     colors.Color(id),
			Count:     counts[id],
		})
	}

	return scene
}

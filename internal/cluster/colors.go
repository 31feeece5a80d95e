// Package cluster derives per-cluster views of a snapshot and assigns each
// cluster a color that does not change with the active filter.
package cluster

import "github.com/matsen/relgraph/internal/graph"

// Palette is the fixed cluster palette. Indices wrap when there are more
// clusters than entries.
var Palette = []string{
	"#4A90D9", // blue
	"#E8923A", // orange
	"#27AE60", // green
	"#C0392B", // red
	"#9B59B6", // purple
	"#8D6E63", // brown
	"#E91E63", // pink
	"#7F8C8D", // gray
	"#B7B327", // olive
	"#1ABC9C", // teal
}

// DefaultColor is used for nodes whose cluster is not in the cluster list.
const DefaultColor = "#95A5A6"

// Colors maps cluster IDs to palette colors.
type Colors struct {
	order []string
	index map[string]int
}

// AssignColors computes the color assignment from the full, unfiltered
// snapshot. Clusters are ordered by first appearance in the node list, then
// any listed clusters no node references, in list order.
func AssignColors(s *graph.Snapshot) *Colors {
	c := &Colors{index: make(map[string]int)}
	if s == nil {
		return c
	}

	known := make(map[string]bool, len(s.Clusters))
	for _, cl := range s.Clusters {
		known[cl.ID] = true
	}

	add := func(id string) {
		if _, ok := c.index[id]; ok {
			return
		}
		c.index[id] = len(c.order)
		c.order = append(c.order, id)
	}
	for _, n := range s.Nodes {
		if known[n.ClusterID] {
			add(n.ClusterID)
		}
	}
	for _, cl := range s.Clusters {
		add(cl.ID)
	}
	return c
}

// Color returns the color for a cluster ID. A nil Colors maps everything
// to DefaultColor.
func (c *Colors) Color(clusterID string) string {
	if c == nil {
		return DefaultColor
	}
	i, ok := c.index[clusterID]
	if !ok {
		return DefaultColor
	}
	return Palette[i%len(Palette)]
}

// Index returns the stable position of a cluster.
func (c *Colors) Index(clusterID string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.index[clusterID]
	return i, ok
}

// Order returns the cluster IDs in stable order.
func (c *Colors) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

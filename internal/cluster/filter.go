package cluster

import "github.com/matsen/relgraph/internal/graph"

// View is the active subset of a snapshot for one filter selection.
type View struct {
	ClusterID string
	Nodes     []graph.Node
	Edges     []graph.Edge

	// Dropped counts edges excluded because an endpoint is not active.
	Dropped int

	// ClusterOrder lists the clusters present in the view, in the stable
	// color order.
	ClusterOrder []string
}

// IsEmpty returns true if the view has no nodes.
func (v View) IsEmpty() bool {
	return len(v.Nodes) == 0
}

// Derive returns the nodes of clusterID (all nodes when clusterID is "") and
// every edge whose two endpoints are both in that node set.
func Derive(s *graph.Snapshot, clusterID string, colors *Colors) View {
	v := View{ClusterID: clusterID}
	if s == nil {
		return v
	}

	members := make(map[string]struct{}, len(s.Nodes))
	present := make(map[string]bool)
	for _, n := range s.Nodes {
		if clusterID != "" && n.ClusterID != clusterID {
			continue
		}
		v.Nodes = append(v.Nodes, n)
		members[n.ID] = struct{}{}
		present[n.ClusterID] = true
	}

	for _, e := range s.Edges {
		_, okS := members[e.Source]
		_, okT := members[e.Target]
		if okS && okT {
			v.Edges = append(v.Edges, e)
		} else {
			v.Dropped++
		}
	}

	v.ClusterOrder = orderPresent(present, colors, v.Nodes)
	return v
}

// orderPresent lists the present clusters in the stable color order.
// Clusters unknown to colors follow in first-seen order.
func orderPresent(present map[string]bool, colors *Colors, nodes []graph.Node) []string {
	var out []string
	done := make(map[string]bool, len(present))
	if colors != nil {
		for _, id := range colors.order {
			if present[id] {
				out = append(out, id)
				done[id] = true
			}
		}
	}
	for _, n := range nodes {
		if !done[n.ClusterID] {
			out = append(out, n.ClusterID)
			done[n.ClusterID] = true
		}
	}
	return out
}

// Counts returns the number of nodes per cluster in the snapshot.
func Counts(s *graph.Snapshot) map[string]int {
	out := make(map[string]int)
	if s == nil {
		return out
	}
	for _, n := range s.Nodes {
		out[n.ClusterID]++
	}
	return out
}

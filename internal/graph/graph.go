// Package graph defines the snapshot records for the relationship graph:
// nodes, weighted directional edges and named clusters.
package graph

import (
	"errors"
	"fmt"

	"github.com/matsen/relgraph/internal/geom"
)

// Node is a rendered entity. Every node belongs to exactly one cluster.
type Node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClusterID string `json:"cluster_id"`
	Portrait  string `json:"portrait,omitempty"`

	// Pos is assigned by the layout engine; nil until then.
	Pos *geom.Point `json:"pos,omitempty"`
	// Pin overrides Pos while the node is being dragged.
	Pin *geom.Point `json:"pin,omitempty"`
}

// Label returns the display name, falling back to the ID.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Edge is an unordered relationship between two nodes. AToB and BToA count
// interactions in each direction (Source→Target and Target→Source).
type Edge struct {
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Weight  float64 `json:"weight"`
	AToB    int     `json:"a_to_b"`
	BToA    int     `json:"b_to_a"`
	Threads int     `json:"threads"`
}

// ID returns the identifier used for hover and render primitives.
func (e Edge) ID() string {
	return e.Source + "--" + e.Target
}

// Cluster is a named grouping of nodes.
type Cluster struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Snapshot is one response of the graph data source.
type Snapshot struct {
	Nodes    []Node    `json:"nodes"`
	Edges    []Edge    `json:"edges"`
	Clusters []Cluster `json:"clusters"`
}

// IsEmpty returns true if the snapshot has no nodes.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Validation errors.
var (
	ErrEmptyNodeID    = errors.New("node id is required")
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrEmptyClusterID = errors.New("node cluster_id is required")
	ErrEmptyEndpoint  = errors.New("edge source and target are required")
	ErrSelfEdge       = errors.New("edge source and target cannot be the same")
	ErrNegativeWeight = errors.New("edge weight must be >= 0")
	ErrNegativeCount  = errors.New("edge counts must be >= 0")
)

// IsValidationError reports whether err comes from Validate.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyNodeID, ErrDuplicateNode, ErrEmptyClusterID,
		ErrEmptyEndpoint, ErrSelfEdge, ErrNegativeWeight, ErrNegativeCount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the snapshot. Edges pointing
// at nodes outside the snapshot are not an error: they are dropped when a
// view is derived.
func (s *Snapshot) Validate() error {
	if s == nil {
		return nil
	}

	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return ErrEmptyNodeID
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if n.ClusterID == "" {
			return fmt.Errorf("%w: %s", ErrEmptyClusterID, n.ID)
		}
	}

	for _, e := range s.Edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edge %s: %w", e.ID(), err)
		}
	}
	return nil
}

// Validate checks a single edge.
func (e Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return ErrEmptyEndpoint
	}
	if e.Source == e.Target {
		return ErrSelfEdge
	}
	if e.Weight < 0 {
		return ErrNegativeWeight
	}
	if e.AToB < 0 || e.BToA < 0 || e.Threads < 0 {
		return ErrNegativeCount
	}
	return nil
}

// FilterMinWeight returns a copy of the snapshot keeping only edges with
// weight >= minWeight. Nodes and clusters are shared.
func (s *Snapshot) FilterMinWeight(minWeight float64) *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Nodes: s.Nodes, Clusters: s.Clusters}
	for _, e := range s.Edges {
		if e.Weight >= minWeight {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// NodeByID returns the node with the given ID.
func (s *Snapshot) NodeByID(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

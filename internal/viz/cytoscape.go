package viz

import (
	"encoding/json"
	"fmt"
)

// CytoscapeElements represents the Cytoscape.js data format.
type CytoscapeElements struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// CytoscapeNode represents a node in Cytoscape.js format. Position is read
// by the preset layout.
type CytoscapeNode struct {
	Data     Node              `json:"data"`
	Position CytoscapePosition `json:"position"`
	Locked   bool              `json:"locked,omitempty"`
}

// CytoscapePosition is a model position.
type CytoscapePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CytoscapeEdge represents an edge in Cytoscape.js format.
type CytoscapeEdge struct {
	Data Edge `json:"data"`
}

// ToCytoscapeJSON converts the scene to Cytoscape.js JSON format.
func (s *Scene) ToCytoscapeJSON() (string, error) {
	elements := CytoscapeElements{
		Nodes: make([]CytoscapeNode, 0, len(s.Nodes)),
		Edges: make([]CytoscapeEdge, 0, len(s.Edges)),
	}

	for _, n := range s.Nodes {
		elements.Nodes = append(elements.Nodes, CytoscapeNode{
			Data:     n,
			Position: CytoscapePosition{X: n.X, Y: n.Y},
			Locked:   n.Pinned,
		})
	}
	for _, e := range s.Edges {
		elements.Edges = append(elements.Edges, CytoscapeEdge{Data: e})
	}

	jsonBytes, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("marshaling Cytoscape elements to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

package graph

// Direction is the side an asymmetric edge leans toward.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionAToB     Direction = "a_to_b"
	DirectionBToA     Direction = "b_to_a"
	DirectionBalanced Direction = "balanced"
)

// The asymmetry test is stricter than the direction test; keep them separate.
const (
	AsymmetryRatio = 3
	DominanceRatio = 2
)

// Classification is the derived directional shape of an edge.
type Classification struct {
	Asymmetric bool      `json:"asymmetric"`
	Dominant   Direction `json:"dominant,omitempty"`
}

// Symmetry returns "asymmetric" or "symmetric".
func (c Classification) Symmetry() string {
	if c.Asymmetric {
		return "asymmetric"
	}
	return "symmetric"
}

// Classify derives the classification from the two directional counts.
// The minority count is floored at one, so 1:0 and 2:0 are too little signal
// to call asymmetric while 3:1 and 5:0 are not.
func Classify(a, b int) Classification {
	if a == 0 && b == 0 {
		return Classification{}
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if lo < 1 {
		lo = 1
	}
	if hi < AsymmetryRatio*lo {
		return Classification{}
	}
	return Classification{Asymmetric: true, Dominant: DominantDirection(a, b)}
}

// DominantDirection reports which way a pair of counts leans.
func DominantDirection(a, b int) Direction {
	switch {
	case a > DominanceRatio*b:
		return DirectionAToB
	case b > DominanceRatio*a:
		return DirectionBToA
	default:
		return DirectionBalanced
	}
}

// Classify classifies the edge from its current counts.
func (e Edge) Classify() Classification {
	return Classify(e.AToB, e.BToA)
}

// ClassifiedEdge is an edge together with its classification.
type ClassifiedEdge struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	Weight     float64   `json:"weight"`
	AToB       int       `json:"aToB"`
	BToA       int       `json:"bToA"`
	Asymmetric bool      `json:"asymmetric"`
	Dominant   Direction `json:"dominant,omitempty"`
}

// ClassifyEdges classifies every edge of the snapshot, in order.
func (s *Snapshot) ClassifyEdges() []ClassifiedEdge {
	if s == nil {
		return []ClassifiedEdge{}
	}
	out := make([]ClassifiedEdge, 0, len(s.Edges))
	for _, e := range s.Edges {
		c := e.Classify()
		out = append(out, ClassifiedEdge{
			ID:         e.ID(),
			Source:     e.Source,
			Target:     e.Target,
			Weight:     e.Weight,
			AToB:       e.AToB,
			BToA:       e.BToA,
			Asymmetric: c.Asymmetric,
			Dominant:   c.Dominant,
		})
	}
	return out
}

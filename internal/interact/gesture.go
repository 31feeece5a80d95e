package interact

import "github.com/matsen/relgraph/internal/geom"

// Drag thresholds in screen pixels. Touch is looser because fingers jitter.
const (
	MouseThreshold = 5.0
	TouchThreshold = 10.0
)

// Phase is the state of a press/release cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePressed
	PhaseDragging
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePressed:
		return "pressed"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Subject is what the press landed on.
type Subject int

const (
	SubjectNode Subject = iota
	SubjectBackground
)

// Outcome is how a press/release cycle ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeActivate
	OutcomeDragEnd
	OutcomeTap
	OutcomePanEnd
	OutcomeAborted
)

func (o Outcome) String() string {
	return [...]string{"none", "activate", "drag_end", "tap", "pan_end", "aborted"}[o]
}

// Gesture separates clicks from drags for one pointer. A cycle is either a
// click or a drag, never both: once a move crosses the threshold the cycle
// stays a drag until release.
type Gesture struct {
	phase     Phase
	subject   Subject
	nodeID    string
	pointerID int
	start     geom.Point
	threshold float64
}

// Phase returns the current phase.
func (g *Gesture) Phase() Phase { return g.phase }

// Subject returns what the current press landed on.
func (g *Gesture) Subject() Subject { return g.subject }

// NodeID returns the pressed node, if the press landed on one.
func (g *Gesture) NodeID() string { return g.nodeID }

// PointerID returns the pointer that owns the current press.
func (g *Gesture) PointerID() int { return g.pointerID }

// Start returns the screen point of the press.
func (g *Gesture) Start() geom.Point { return g.start }

// Press starts a cycle. It reports false and changes nothing if a cycle is
// already in progress.
func (g *Gesture) Press(subject Subject, nodeID string, pointerID int, at geom.Point, threshold float64) bool {
	if g.phase != PhaseIdle {
		return false
	}
	*g = Gesture{
		phase:     PhasePressed,
		subject:   subject,
		nodeID:    nodeID,
		pointerID: pointerID,
		start:     at,
		threshold: threshold,
	}
	return true
}

// Move feeds a pointer position. It reports whether this move is the one
// that turned the press into a drag.
func (g *Gesture) Move(at geom.Point) bool {
	if g.phase != PhasePressed {
		return false
	}
	if geom.Dist(at, g.start) > g.threshold {
		g.phase = PhaseDragging
		return true
	}
	return false
}

// Release ends the cycle at the given point. The release point is checked
// against the threshold like any move, so a press released far away is a
// drag and never an activate.
func (g *Gesture) Release(at geom.Point) Outcome {
	if g.phase == PhasePressed {
		g.Move(at)
	}
	var out Outcome
	switch {
	case g.phase == PhaseIdle:
		return OutcomeNone
	case g.subject == SubjectNode && g.phase == PhasePressed:
		out = OutcomeActivate
	case g.subject == SubjectNode:
		out = OutcomeDragEnd
	case g.phase == PhasePressed:
		out = OutcomeTap
	default:
		out = OutcomePanEnd
	}
	g.reset()
	return out
}

// Abort ends the cycle without a click or drag-end.
func (g *Gesture) Abort() Outcome {
	if g.phase == PhaseIdle {
		return OutcomeNone
	}
	g.reset()
	return OutcomeAborted
}

func (g *Gesture) reset() {
	*g = Gesture{}
}

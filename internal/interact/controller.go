// Package interact turns raw pointer input into graph interactions: node
// activation, node dragging, background panning, wheel and pinch zoom, and
// hover.
package interact

import (
	"io"
	"log/slog"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/overlay"
)

// EdgeHitTolerance is the hover distance to an edge, in screen pixels.
const EdgeHitTolerance = 6.0

// Target is the simulation the controller drives. *layout.Engine
// implements it.
type Target interface {
	NodeAt(world geom.Point) (string, bool)
	EdgeAt(world geom.Point, tol float64) (string, bool)
	Pin(id string, p geom.Point) error
	Unpin(id string) error
	Reheat()
	Cool()
}

// InputKind is the kind of a pointer event.
type InputKind string

const (
	InputDown  InputKind = "down"
	InputMove  InputKind = "move"
	InputUp    InputKind = "up"
	InputLeave InputKind = "leave"
	InputWheel InputKind = "wheel"
)

// PointerType distinguishes mouse and touch input.
type PointerType string

const (
	PointerMouse PointerType = "mouse"
	PointerTouch PointerType = "touch"
)

// Input is one pointer event in container coordinates.
type Input struct {
	Kind    InputKind   `json:"kind"`
	Pointer PointerType `json:"pointer,omitempty"`
	ID      int         `json:"id,omitempty"`
	At      geom.Point  `json:"at"`
	DeltaY  float64     `json:"deltaY,omitempty"`
}

// ActivateEvent is fired once per click on a node.
type ActivateEvent struct {
	NodeID string `json:"nodeId"`
}

// DragEndEvent is fired when a node drag is released normally.
type DragEndEvent struct {
	NodeID string     `json:"nodeId"`
	At     geom.Point `json:"at"`
}

// HoverEvent describes what is under the pointer. Both IDs are empty when
// nothing is, which hides the tooltip.
type HoverEvent struct {
	NodeID string         `json:"nodeId,omitempty"`
	EdgeID string         `json:"edgeId,omitempty"`
	Anchor overlay.Anchor `json:"anchor"`
}

// Empty reports whether the event hides the tooltip.
func (h HoverEvent) Empty() bool {
	return h.NodeID == "" && h.EdgeID == ""
}

type pinch struct {
	active    bool
	ids       [2]int
	startDist float64
	startView Viewport
	anchor    geom.Point
}

// Controller owns the gesture state and the viewport for one graph view.
// Like the scheduler it runs on, it is not safe for concurrent use.
type Controller struct {
	target Target
	logger *slog.Logger
	view   Viewport
	bounds geom.Rect

	gesture Gesture
	panLast geom.Point
	touches map[int]geom.Point
	pinch   pinch
	hover   *overlay.Throttle[HoverEvent]

	onActivate func(ActivateEvent)
	onDragEnd  func(DragEndEvent)
	onTap      func()
	onViewport func(Viewport)
	onHover    func(HoverEvent)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithActivateHandler sets the node click callback.
func WithActivateHandler(fn func(ActivateEvent)) Option {
	return func(c *Controller) { c.onActivate = fn }
}

// WithDragEndHandler sets the callback for completed node drags.
func WithDragEndHandler(fn func(DragEndEvent)) Option {
	return func(c *Controller) { c.onDragEnd = fn }
}

// WithTapHandler sets the callback for a click on the background.
func WithTapHandler(fn func()) Option {
	return func(c *Controller) { c.onTap = fn }
}

// WithViewportHandler sets the callback fired whenever pan or zoom changes.
func WithViewportHandler(fn func(Viewport)) Option {
	return func(c *Controller) { c.onViewport = fn }
}

// WithHoverHandler sets the throttled hover callback.
func WithHoverHandler(fn func(HoverEvent)) Option {
	return func(c *Controller) { c.onHover = fn }
}

// WithBounds sets the container bounds in page coordinates.
func WithBounds(r geom.Rect) Option {
	return func(c *Controller) { c.bounds = r }
}

// NewController returns a controller driving target. Hover updates are
// delivered at most once per frame of sched.
func NewController(target Target, sched loop.Scheduler, opts ...Option) *Controller {
	c := &Controller{
		target:  target,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		view:    Identity(),
		touches: make(map[int]geom.Point),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hover = overlay.NewThrottle(sched, func(h HoverEvent) {
		if c.onHover != nil {
			c.onHover(h)
		}
	})
	return c
}

// Viewport returns the current pan/zoom transform.
func (c *Controller) Viewport() Viewport { return c.view }

// SetViewport replaces the transform, clamping its scale.
func (c *Controller) SetViewport(v Viewport) {
	v.K = geom.Clamp(v.K, MinScale, MaxScale)
	c.setView(v)
}

// Bounds returns the container bounds.
func (c *Controller) Bounds() geom.Rect { return c.bounds }

// SetBounds updates the container bounds used to place the tooltip.
func (c *Controller) SetBounds(r geom.Rect) { c.bounds = r }

// Phase returns the phase of the current gesture.
func (c *Controller) Phase() Phase { return c.gesture.Phase() }

// Pinching reports whether a two-finger zoom is in progress.
func (c *Controller) Pinching() bool { return c.pinch.active }

// SetTarget swaps the simulation, dropping any gesture in progress without
// firing events or touching the old target.
func (c *Controller) SetTarget(t Target) {
	c.gesture.Abort()
	c.pinch = pinch{}
	c.touches = make(map[int]geom.Point)
	c.hover.Cancel()
	c.target = t
}

// Close drops pending hover work. The controller must not be used after.
func (c *Controller) Close() {
	c.hover.Cancel()
	c.gesture.Abort()
	c.pinch = pinch{}
	c.target = nil
}

// Handle feeds one input event.
func (c *Controller) Handle(in Input) {
	if c.target == nil {
		return
	}
	if in.Pointer == "" {
		in.Pointer = PointerMouse
	}
	switch in.Kind {
	case InputDown:
		c.down(in)
	case InputMove:
		c.move(in)
	case InputUp:
		c.up(in)
	case InputLeave:
		c.leave()
	case InputWheel:
		c.setView(c.view.Wheel(in.DeltaY, in.At))
	default:
		c.logger.Debug("ignoring input", "kind", string(in.Kind))
	}
}

func (c *Controller) down(in Input) {
	c.hover.Cancel()
	if in.Pointer == PointerTouch {
		c.touches[in.ID] = in.At
		if len(c.touches) == 2 && !c.pinch.active {
			c.abortGesture()
			c.startPinch()
			return
		}
		if len(c.touches) > 1 {
			return
		}
	}

	threshold := MouseThreshold
	if in.Pointer == PointerTouch {
		threshold = TouchThreshold
	}
	world := c.view.ToWorld(in.At)
	if id, ok := c.target.NodeAt(world); ok {
		c.gesture.Press(SubjectNode, id, in.ID, in.At, threshold)
		return
	}
	if c.gesture.Press(SubjectBackground, "", in.ID, in.At, threshold) {
		c.panLast = in.At
	}
}

func (c *Controller) move(in Input) {
	if in.Pointer == PointerTouch {
		if _, down := c.touches[in.ID]; down {
			c.touches[in.ID] = in.At
		}
		if c.pinch.active {
			c.updatePinch()
			return
		}
	}

	if c.gesture.Phase() == PhaseIdle {
		if in.Pointer == PointerMouse {
			c.updateHover(in.At)
		}
		return
	}
	if in.ID != c.gesture.PointerID() {
		return
	}

	started := c.gesture.Move(in.At)
	if c.gesture.Phase() != PhaseDragging {
		return
	}
	switch c.gesture.Subject() {
	case SubjectNode:
		if started {
			c.target.Reheat()
		}
		id := c.gesture.NodeID()
		if err := c.target.Pin(id, c.view.ToWorld(in.At)); err != nil {
			c.logger.Warn("pin failed", "node", id, "error", err)
		}
	case SubjectBackground:
		c.setView(c.view.Pan(in.At.Sub(c.panLast)))
		c.panLast = in.At
	}
}

func (c *Controller) up(in Input) {
	if in.Pointer == PointerTouch {
		delete(c.touches, in.ID)
		if c.pinch.active {
			if len(c.touches) < 2 {
				c.pinch = pinch{}
			}
			return
		}
	}
	if c.gesture.Phase() == PhaseIdle || in.ID != c.gesture.PointerID() {
		return
	}
	// The release point counts as the last move of the gesture.
	c.move(in)

	id := c.gesture.NodeID()
	switch c.gesture.Release(in.At) {
	case OutcomeActivate:
		if c.onActivate != nil {
			c.onActivate(ActivateEvent{NodeID: id})
		}
	case OutcomeDragEnd:
		c.release(id)
		if c.onDragEnd != nil {
			c.onDragEnd(DragEndEvent{NodeID: id, At: c.view.ToWorld(in.At)})
		}
	case OutcomeTap:
		if c.onTap != nil {
			c.onTap()
		}
	}
}

func (c *Controller) leave() {
	c.abortGesture()
	c.pinch = pinch{}
	c.touches = make(map[int]geom.Point)
	c.hover.Update(HoverEvent{})
}

// abortGesture ends the current cycle silently, releasing a dragged node.
func (c *Controller) abortGesture() {
	wasDrag := c.gesture.Phase() == PhaseDragging && c.gesture.Subject() == SubjectNode
	id := c.gesture.NodeID()
	c.gesture.Abort()
	if wasDrag {
		c.release(id)
	}
}

func (c *Controller) release(id string) {
	if err := c.target.Unpin(id); err != nil {
		c.logger.Warn("unpin failed", "node", id, "error", err)
	}
	c.target.Cool()
}

func (c *Controller) touchPair() (geom.Point, geom.Point, bool) {
	a, okA := c.touches[c.pinch.ids[0]]
	b, okB := c.touches[c.pinch.ids[1]]
	return a, b, okA && okB
}

func (c *Controller) startPinch() {
	var ids []int
	for id := range c.touches {
		ids = append(ids, id)
	}
	if ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	c.pinch = pinch{active: true, ids: [2]int{ids[0], ids[1]}, startView: c.view}
	a, b, _ := c.touchPair()
	c.pinch.startDist = geom.Dist(a, b)
	c.pinch.anchor = c.view.ToWorld(geom.Mid(a, b))
}

func (c *Controller) updatePinch() {
	a, b, ok := c.touchPair()
	if !ok || c.pinch.startDist == 0 {
		return
	}
	k := geom.Clamp(c.pinch.startView.K*geom.Dist(a, b)/c.pinch.startDist, MinScale, MaxScale)
	mid := geom.Mid(a, b)
	c.setView(Viewport{
		X: mid.X - c.pinch.anchor.X*k,
		Y: mid.Y - c.pinch.anchor.Y*k,
		K: k,
	})
}

func (c *Controller) updateHover(at geom.Point) {
	world := c.view.ToWorld(at)
	ev := HoverEvent{
		Anchor: overlay.Position(geom.Point{X: at.X + c.bounds.Left, Y: at.Y + c.bounds.Top}, c.bounds),
	}
	if id, ok := c.target.NodeAt(world); ok {
		ev.NodeID = id
	} else if id, ok := c.target.EdgeAt(world, EdgeHitTolerance/c.view.K); ok {
		ev.EdgeID = id
	}
	c.hover.Update(ev)
}

func (c *Controller) setView(v Viewport) {
	c.view = v
	if c.onViewport != nil {
		c.onViewport(v)
	}
}

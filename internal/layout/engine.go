package layout

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/loop"
)

// Engine errors.
var (
	ErrNoNodes       = errors.New("layout needs at least one node")
	ErrNoScheduler   = errors.New("layout needs a scheduler")
	ErrUnknownNode   = errors.New("node is not part of this layout")
	ErrEngineStopped = errors.New("layout engine has been stopped")
)

// goldenAngle spaces the initial spiral placement.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// Position is one node's location as reported to the renderer.
type Position struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// Tick is delivered to the tick handler after every iteration.
type Tick struct {
	N               int
	Alpha           float64
	MaxDisplacement float64
	Positions       []Position
}

// SettleReason says why the engine hard-stopped.
type SettleReason string

const (
	SettleAlpha   SettleReason = "alpha"
	SettleTimeout SettleReason = "timeout"
)

// Settle is delivered to the settle handler when the engine hard-stops.
type Settle struct {
	Ticks   int
	Alpha   float64
	Reason  SettleReason
	Elapsed time.Duration
}

type body struct {
	id      string
	cluster string
	x, y    float64
	vx, vy  float64
	pinned  bool
	px, py  float64
}

type link struct {
	s, t     int
	id       string
	distance float64
	strength float64
	bias     float64
}

// Engine is the simulation for one active node/edge set. It is not safe for
// concurrent use: every method must run on the scheduler's thread.
type Engine struct {
	cfg    Config
	sched  loop.Scheduler
	logger *slog.Logger
	rng    *rand.Rand

	bodies       []body
	index        map[string]int
	links        []link
	clusterOrder []string
	cells        map[string]geom.Point

	alpha       float64
	alphaTarget float64

	running   bool
	settled   bool
	stopped   bool
	frame     loop.Handle
	settleTmr loop.Handle
	ticks     int
	runStart  time.Time

	onTick   func(Tick)
	onSettle func(Settle)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTickHandler sets the per-tick render callback.
func WithTickHandler(fn func(Tick)) Option {
	return func(e *Engine) {
		e.onTick = fn
	}
}

// WithSettleHandler sets the callback fired when the engine hard-stops.
func WithSettleHandler(fn func(Settle)) Option {
	return func(e *Engine) {
		e.onSettle = fn
	}
}

// WithClusterOrder sets the order used to assign cluster grid cells. By
// default clusters are ordered by first appearance in the node list.
func WithClusterOrder(order []string) Option {
	return func(e *Engine) {
		e.clusterOrder = append([]string(nil), order...)
	}
}

// New builds an engine over nodes and edges. Edges whose endpoints are not
// both in nodes are ignored. Nodes carrying a Pos keep it as their starting
// point; nodes carrying a Pin start pinned.
func New(nodes []graph.Node, edges []graph.Edge, sched loop.Scheduler, cfg Config, opts ...Option) (*Engine, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	if sched == nil {
		return nil, ErrNoScheduler
	}

	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		sched:  sched,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		index:  make(map[string]int, len(nodes)),
		alpha:  1,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.bodies = make([]body, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := e.index[n.ID]; dup {
			continue
		}
		e.index[n.ID] = len(e.bodies)
		b := body{id: n.ID, cluster: n.ClusterID}
		if n.Pin != nil {
			b.pinned = true
			b.px, b.py = n.Pin.X, n.Pin.Y
		}
		e.bodies = append(e.bodies, b)
	}

	if e.clusterOrder == nil {
		seen := make(map[string]bool)
		for _, b := range e.bodies {
			if !seen[b.cluster] {
				seen[b.cluster] = true
				e.clusterOrder = append(e.clusterOrder, b.cluster)
			}
		}
	}
	e.cells = ClusterGrid(e.clusterOrder, cfg.Width, cfg.Height)

	e.buildLinks(edges)
	e.place(nodes)

	e.logger.Debug("layout engine created",
		"nodes", len(e.bodies),
		"links", len(e.links),
		"clusters", len(e.clusterOrder))
	return e, nil
}

func (e *Engine) buildLinks(edges []graph.Edge) {
	degree := make([]int, len(e.bodies))
	for _, ed := range edges {
		s, okS := e.index[ed.Source]
		t, okT := e.index[ed.Target]
		if !okS || !okT || s == t {
			continue
		}
		degree[s]++
		degree[t]++
		e.links = append(e.links, link{
			s:        s,
			t:        t,
			id:       ed.ID(),
			distance: e.cfg.LinkDistance(ed.Weight),
		})
	}
	for i := range e.links {
		l := &e.links[i]
		ds, dt := float64(degree[l.s]), float64(degree[l.t])
		l.strength = 1 / math.Min(ds, dt)
		l.bias = ds / (ds + dt)
	}
}

// place seeds positions on a jittered spiral around each cluster's cell.
func (e *Engine) place(nodes []graph.Node) {
	start := make(map[string]geom.Point)
	for _, n := range nodes {
		if n.Pos != nil {
			if _, ok := start[n.ID]; !ok {
				start[n.ID] = *n.Pos
			}
		}
	}

	step := e.cfg.MinSeparation() * 0.6
	perCluster := make(map[string]int)
	for i := range e.bodies {
		b := &e.bodies[i]
		if b.pinned {
			b.x, b.y = b.px, b.py
			continue
		}
		if pos, ok := start[b.id]; ok {
			b.x, b.y = pos.X, pos.Y
			continue
		}
		k := perCluster[b.cluster]
		perCluster[b.cluster]++
		c := e.cellFor(b.cluster)
		r := step * math.Sqrt(0.5+float64(k))
		a := float64(k)*goldenAngle + (e.rng.Float64()-0.5)*0.2
		b.x = c.X + r*math.Cos(a)
		b.y = c.Y + r*math.Sin(a)
	}
}

func (e *Engine) cellFor(cluster string) geom.Point {
	if c, ok := e.cells[cluster]; ok {
		return c
	}
	return geom.Point{X: e.cfg.Width / 2, Y: e.cfg.Height / 2}
}

// Start begins requesting frames. It is a no-op if the engine is already
// running or has been stopped.
func (e *Engine) Start() {
	if e.stopped || e.running {
		return
	}
	e.running = true
	e.settled = false
	e.runStart = e.sched.Now()
	e.armSettleTimer()
	e.requestFrame()
}

func (e *Engine) requestFrame() {
	if e.frame != 0 {
		return
	}
	e.frame = e.sched.RequestFrame(e.onFrame)
}

func (e *Engine) onFrame(time.Time) {
	e.frame = 0
	if !e.running {
		return
	}
	e.Step()
	if e.running {
		e.requestFrame()
	}
}

func (e *Engine) armSettleTimer() {
	if e.settleTmr != 0 {
		e.sched.CancelTimer(e.settleTmr)
		e.settleTmr = 0
	}
	if e.cfg.SettleTimeout <= 0 {
		return
	}
	e.settleTmr = e.sched.AfterFunc(e.cfg.SettleTimeout, e.onSettleTimer)
}

func (e *Engine) onSettleTimer() {
	e.settleTmr = 0
	if !e.running {
		return
	}
	if e.dragging() {
		e.armSettleTimer()
		return
	}
	e.hardStop(SettleTimeout)
}

func (e *Engine) dragging() bool {
	return e.alphaTarget > 0
}

// Stop ends the engine for good: the pending frame and settle timer are
// cancelled and no further tick or settle callbacks fire.
func (e *Engine) Stop() {
	e.stopped = true
	e.halt()
}

func (e *Engine) halt() {
	e.running = false
	if e.frame != 0 {
		e.sched.CancelFrame(e.frame)
		e.frame = 0
	}
	if e.settleTmr != 0 {
		e.sched.CancelTimer(e.settleTmr)
		e.settleTmr = 0
	}
}

// hardStop zeroes all residual motion and stops requesting frames.
func (e *Engine) hardStop(reason SettleReason) {
	for i := range e.bodies {
		e.bodies[i].vx = 0
		e.bodies[i].vy = 0
	}
	e.halt()
	e.settled = true
	e.logger.Debug("layout settled",
		"reason", string(reason),
		"ticks", e.ticks,
		"alpha", e.alpha)
	if e.onSettle != nil {
		e.onSettle(Settle{
			Ticks:   e.ticks,
			Alpha:   e.alpha,
			Reason:  reason,
			Elapsed: e.sched.Now().Sub(e.runStart),
		})
	}
}

// Step runs one iteration and reports it to the tick handler. Frames call
// Step while the engine runs; headless callers may call it directly.
func (e *Engine) Step() Tick {
	e.alpha += (e.alphaTarget - e.alpha) * e.cfg.AlphaDecay

	prev := make([]geom.Point, len(e.bodies))
	for i, b := range e.bodies {
		prev[i] = geom.Point{X: b.x, Y: b.y}
	}

	e.applyLinks()
	e.applyCharge()
	e.applyClusters()
	e.applyCollide()
	e.integrate()
	e.applyCenter()
	e.separate()

	maxDisp := 0.0
	for i, b := range e.bodies {
		if d := geom.Dist(prev[i], geom.Point{X: b.x, Y: b.y}); d > maxDisp {
			maxDisp = d
		}
	}
	e.ticks++

	t := Tick{
		N:               e.ticks,
		Alpha:           e.alpha,
		MaxDisplacement: maxDisp,
		Positions:       e.Positions(),
	}
	if e.onTick != nil {
		e.onTick(t)
	}
	if e.running && e.alpha < e.cfg.AlphaMin && !e.dragging() {
		e.hardStop(SettleAlpha)
	}
	return t
}

func (e *Engine) jiggle() float64 {
	return (e.rng.Float64() - 0.5) * 1e-6
}

func (e *Engine) applyLinks() {
	for _, l := range e.links {
		s, t := &e.bodies[l.s], &e.bodies[l.t]
		x := t.x + t.vx - s.x - s.vx
		y := t.y + t.vy - s.y - s.vy
		if x == 0 {
			x = e.jiggle()
		}
		if y == 0 {
			y = e.jiggle()
		}
		d := math.Sqrt(x*x + y*y)
		k := (d - l.distance) / d * e.alpha * l.strength
		x *= k
		y *= k
		t.vx -= x * l.bias
		t.vy -= y * l.bias
		s.vx += x * (1 - l.bias)
		s.vy += y * (1 - l.bias)
	}
}

// applyCharge repels every pair with magnitude |strength|*alpha/distance.
func (e *Engine) applyCharge() {
	n := len(e.bodies)
	for i := 0; i < n; i++ {
		bi := &e.bodies[i]
		for j := i + 1; j < n; j++ {
			bj := &e.bodies[j]
			dx := bj.x - bi.x
			dy := bj.y - bi.y
			if dx == 0 {
				dx = e.jiggle()
			}
			if dy == 0 {
				dy = e.jiggle()
			}
			l := dx*dx + dy*dy
			if l < 1 {
				l = math.Sqrt(l)
			}
			w := e.cfg.ChargeStrength * e.alpha / l
			bi.vx += dx * w
			bi.vy += dy * w
			bj.vx -= dx * w
			bj.vy -= dy * w
		}
	}
}

func (e *Engine) applyClusters() {
	k := e.cfg.ClusterStrength * e.alpha
	for i := range e.bodies {
		b := &e.bodies[i]
		c := e.cellFor(b.cluster)
		b.vx += (c.X - b.x) * k
		b.vy += (c.Y - b.y) * k
	}
}

// applyCollide pushes overlapping pairs apart through their velocities.
func (e *Engine) applyCollide() {
	r := e.cfg.MinSeparation()
	n := len(e.bodies)
	for i := 0; i < n; i++ {
		bi := &e.bodies[i]
		for j := i + 1; j < n; j++ {
			bj := &e.bodies[j]
			dx := (bi.x + bi.vx) - (bj.x + bj.vx)
			dy := (bi.y + bi.vy) - (bj.y + bj.vy)
			l2 := dx*dx + dy*dy
			if l2 >= r*r {
				continue
			}
			if dx == 0 {
				dx = e.jiggle()
				l2 += dx * dx
			}
			if dy == 0 {
				dy = e.jiggle()
				l2 += dy * dy
			}
			l := math.Sqrt(l2)
			k := (r - l) / l * e.cfg.CollideStrength
			wi, wj := shares(bi.pinned, bj.pinned)
			bi.vx += dx * k * wi
			bi.vy += dy * k * wi
			bj.vx -= dx * k * wj
			bj.vy -= dy * k * wj
		}
	}
}

// shares splits a correction between two bodies; pinned bodies take none.
func shares(pinnedI, pinnedJ bool) (float64, float64) {
	switch {
	case pinnedI && pinnedJ:
		return 0, 0
	case pinnedI:
		return 0, 1
	case pinnedJ:
		return 1, 0
	default:
		return 0.5, 0.5
	}
}

func (e *Engine) integrate() {
	decay := 1 - e.cfg.VelocityDecay
	for i := range e.bodies {
		b := &e.bodies[i]
		if b.pinned {
			b.x, b.y = b.px, b.py
			b.vx, b.vy = 0, 0
			continue
		}
		b.vx *= decay
		b.vy *= decay
		b.x += b.vx
		b.y += b.vy
	}
}

// applyCenter shifts the free nodes so their centroid moves toward the
// surface center.
func (e *Engine) applyCenter() {
	var sx, sy float64
	free := 0
	for _, b := range e.bodies {
		if b.pinned {
			continue
		}
		sx += b.x
		sy += b.y
		free++
	}
	if free == 0 {
		return
	}
	dx := (sx/float64(free) - e.cfg.Width/2) * e.cfg.CenterStrength
	dy := (sy/float64(free) - e.cfg.Height/2) * e.cfg.CenterStrength
	for i := range e.bodies {
		if e.bodies[i].pinned {
			continue
		}
		e.bodies[i].x -= dx
		e.bodies[i].y -= dy
	}
}

// maxSeparationPasses bounds the positional collision relaxation per tick.
const maxSeparationPasses = 12

// separate moves free nodes apart until no two centers are closer than
// MinSeparation, or the pass budget runs out. Pinned nodes never move.
func (e *Engine) separate() {
	r := e.cfg.MinSeparation()
	n := len(e.bodies)
	for pass := 0; pass < maxSeparationPasses; pass++ {
		moved := false
		for i := 0; i < n; i++ {
			bi := &e.bodies[i]
			for j := i + 1; j < n; j++ {
				bj := &e.bodies[j]
				wi, wj := shares(bi.pinned, bj.pinned)
				if wi == 0 && wj == 0 {
					continue
				}
				dx := bi.x - bj.x
				dy := bi.y - bj.y
				d := math.Sqrt(dx*dx + dy*dy)
				if d >= r {
					continue
				}
				if d == 0 {
					a := e.rng.Float64() * 2 * math.Pi
					dx, dy, d = math.Cos(a), math.Sin(a), 1
				}
				overlap := (r - d) / d
				bi.x += dx * overlap * wi
				bi.y += dy * overlap * wi
				bj.x -= dx * overlap * wj
				bj.y -= dy * overlap * wj
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

// Reheat raises the energy target so the layout reacts while a node is
// dragged, restarting a settled engine.
func (e *Engine) Reheat() {
	if e.stopped {
		return
	}
	e.alphaTarget = e.cfg.DragAlphaTarget
	if e.running {
		e.armSettleTimer()
		return
	}
	e.Start()
}

// Cool drops the energy target back to zero and caps the current energy,
// so the layout settles quickly after a drag instead of re-jittering.
func (e *Engine) Cool() {
	if e.stopped {
		return
	}
	e.alphaTarget = 0
	e.alpha = math.Min(e.alpha, e.cfg.ReleaseAlphaCap)
	if e.running {
		e.armSettleTimer()
		return
	}
	e.Start()
}

// Pin fixes a node at p. The pin wins over the forces of every later tick.
func (e *Engine) Pin(id string, p geom.Point) error {
	if e.stopped {
		return ErrEngineStopped
	}
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	b := &e.bodies[i]
	b.pinned = true
	b.px, b.py = p.X, p.Y
	b.x, b.y = p.X, p.Y
	b.vx, b.vy = 0, 0
	return nil
}

// Unpin returns a node to the simulation.
func (e *Engine) Unpin(id string) error {
	if e.stopped {
		return ErrEngineStopped
	}
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	e.bodies[i].pinned = false
	return nil
}

// Resize retargets the center and cluster cells to a new surface size.
// Velocities are kept; a settled engine restarts at ReleaseAlphaCap.
func (e *Engine) Resize(width, height float64) {
	if e.stopped || width <= 0 || height <= 0 {
		return
	}
	e.cfg.Width = width
	e.cfg.Height = height
	e.cells = ClusterGrid(e.clusterOrder, width, height)
	if !e.running {
		e.alpha = math.Max(e.alpha, e.cfg.ReleaseAlphaCap)
		e.Start()
	}
}

// Positions returns the current positions in node order.
func (e *Engine) Positions() []Position {
	out := make([]Position, len(e.bodies))
	for i, b := range e.bodies {
		out[i] = Position{ID: b.id, X: b.x, Y: b.y, Pinned: b.pinned}
	}
	return out
}

// PositionOf returns one node's position.
func (e *Engine) PositionOf(id string) (Position, bool) {
	i, ok := e.index[id]
	if !ok {
		return Position{}, false
	}
	b := e.bodies[i]
	return Position{ID: b.id, X: b.x, Y: b.y, Pinned: b.pinned}, true
}

// NodeAt returns the topmost node whose disc contains the world point p.
func (e *Engine) NodeAt(p geom.Point) (string, bool) {
	r := e.cfg.NodeRadius
	for i := len(e.bodies) - 1; i >= 0; i-- {
		b := e.bodies[i]
		if geom.Dist(p, geom.Point{X: b.x, Y: b.y}) <= r {
			return b.id, true
		}
	}
	return "", false
}

// EdgeAt returns the edge whose segment passes closest to p, if within tol.
func (e *Engine) EdgeAt(p geom.Point, tol float64) (string, bool) {
	best := ""
	bestD := tol
	for _, l := range e.links {
		s, t := e.bodies[l.s], e.bodies[l.t]
		d := geom.SegmentDist(p, geom.Point{X: s.x, Y: s.y}, geom.Point{X: t.x, Y: t.y})
		if d <= bestD {
			best, bestD = l.id, d
		}
	}
	return best, best != ""
}

// Alpha returns the current energy.
func (e *Engine) Alpha() float64 { return e.alpha }

// Running reports whether the engine is requesting frames.
func (e *Engine) Running() bool { return e.running }

// Settled reports whether the engine has hard-stopped since its last start.
func (e *Engine) Settled() bool { return e.settled }

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool { return e.stopped }

// Ticks returns the number of iterations run so far.
func (e *Engine) Ticks() int { return e.ticks }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// ClusterCells returns the current cluster cell centers.
func (e *Engine) ClusterCells() map[string]geom.Point {
	out := make(map[string]geom.Point, len(e.cells))
	for k, v := range e.cells {
		out[k] = v
	}
	return out
}

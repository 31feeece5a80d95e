// Package session owns one interactive graph view: it loads a snapshot,
// derives the cluster view, runs a layout engine over it and feeds pointer
// input through an interaction controller. A Session runs entirely on its
// scheduler's thread.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/matsen/relgraph/internal/cluster"
	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/layout"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/metrics"
	"github.com/matsen/relgraph/internal/source"
	"github.com/matsen/relgraph/internal/viz"
)

var tracer = otel.Tracer("relgraph.session")

// ErrDisposed is returned by operations on a disposed session.
var ErrDisposed = errors.New("session has been disposed")

// State is the view state shown to the user.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateError   State = "error"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

// Renderer receives a fresh scene after every layout tick and every
// viewport change.
type Renderer func(viz.Scene)

// Session is one graph view. Not safe for concurrent use.
type Session struct {
	id     string
	src    source.Source
	sched  loop.Scheduler
	logger *slog.Logger

	render       Renderer
	onActivate   func(interact.ActivateEvent)
	onHover      func(interact.HoverEvent)
	onState      func(State, error)
	onSettle     func(layout.Settle)
	layoutConfig layout.Config
	bounds       geom.Rect

	state  State
	err    error
	snap   *graph.Snapshot
	colors *cluster.Colors
	filter string
	view   cluster.View

	engine *layout.Engine
	ctrl   *interact.Controller

	disposed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRenderer sets the render port.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.render = r }
}

// WithActivate sets the node navigation callback.
func WithActivate(fn func(interact.ActivateEvent)) Option {
	return func(s *Session) { s.onActivate = fn }
}

// WithHover sets the tooltip callback.
func WithHover(fn func(interact.HoverEvent)) Option {
	return func(s *Session) { s.onHover = fn }
}

// WithStateChange sets the callback fired on every state transition.
func WithStateChange(fn func(State, error)) Option {
	return func(s *Session) { s.onState = fn }
}

// WithSettle sets the callback fired when a layout run hard-stops.
func WithSettle(fn func(layout.Settle)) Option {
	return func(s *Session) { s.onSettle = fn }
}

// WithLayoutConfig overrides the engine configuration.
func WithLayoutConfig(cfg layout.Config) Option {
	return func(s *Session) { s.layoutConfig = cfg }
}

// WithSize sets the initial surface size.
func WithSize(width, height float64) Option {
	return func(s *Session) {
		s.layoutConfig.Width = width
		s.layoutConfig.Height = height
	}
}

// WithBounds sets the container bounds used to place tooltips.
func WithBounds(r geom.Rect) Option {
	return func(s *Session) { s.bounds = r }
}

// New creates an idle session reading from src.
func New(src source.Source, sched loop.Scheduler, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		src:          src,
		sched:        sched,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		layoutConfig: layout.DefaultConfig(),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	def := layout.DefaultConfig()
	if s.layoutConfig.Width <= 0 || s.layoutConfig.Height <= 0 {
		s.layoutConfig.Width, s.layoutConfig.Height = def.Width, def.Height
	}
	if s.bounds.Width == 0 {
		s.bounds = geom.Rect{Width: s.layoutConfig.Width, Height: s.layoutConfig.Height}
	}

	s.ctrl = interact.NewController(nil, sched,
		interact.WithLogger(s.logger),
		interact.WithBounds(s.bounds),
		interact.WithActivateHandler(func(e interact.ActivateEvent) {
			metrics.Gesture(interact.OutcomeActivate.String())
			s.logger.Debug("node activated", "node", e.NodeID)
			if s.onActivate != nil {
				s.onActivate(e)
			}
		}),
		interact.WithDragEndHandler(func(e interact.DragEndEvent) {
			metrics.Gesture(interact.OutcomeDragEnd.String())
		}),
		interact.WithTapHandler(func() {
			metrics.Gesture(interact.OutcomeTap.String())
		}),
		interact.WithViewportHandler(func(interact.Viewport) {
			if s.engine != nil && !s.engine.Running() {
				s.emit(s.engine.Positions())
			}
		}),
		interact.WithHoverHandler(func(e interact.HoverEvent) {
			if s.onHover != nil {
				s.onHover(e)
			}
		}),
	)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current view state.
func (s *Session) State() State { return s.state }

// Err returns the fetch error behind StateError.
func (s *Session) Err() error { return s.err }

// Filter returns the active cluster filter; "" means all clusters.
func (s *Session) Filter() string { return s.filter }

// Snapshot returns the loaded snapshot, or nil.
func (s *Session) Snapshot() *graph.Snapshot { return s.snap }

// Engine returns the active engine, or nil outside StateReady.
func (s *Session) Engine() *layout.Engine { return s.engine }

// Viewport returns the current pan/zoom transform.
func (s *Session) Viewport() interact.Viewport { return s.ctrl.Viewport() }

// Fetch reads a snapshot from the source without touching session state.
// It may run off the scheduler thread.
func (s *Session) Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "session.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.Float64("min_weight", minWeight),
	)

	snap, err := s.src.Fetch(ctx, minWeight)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("nodes", len(snap.Nodes)),
		attribute.Int("edges", len(snap.Edges)),
	)
	return snap, nil
}

// MarkLoading enters StateLoading ahead of an asynchronous fetch.
func (s *Session) MarkLoading() {
	if s.disposed {
		return
	}
	s.stopEngine()
	s.setState(StateLoading, nil)
}

// Load fetches a snapshot and applies it.
func (s *Session) Load(ctx context.Context, minWeight float64) error {
	if s.disposed {
		return ErrDisposed
	}
	s.MarkLoading()
	snap, err := s.Fetch(ctx, minWeight)
	return s.Apply(snap, err)
}

// Apply installs the result of a fetch. A fetch error or an empty snapshot
// leaves no engine running. The returned error is the fetch error.
func (s *Session) Apply(snap *graph.Snapshot, fetchErr error) error {
	if s.disposed {
		return ErrDisposed
	}
	s.stopEngine()

	if fetchErr != nil {
		s.snap, s.colors = nil, nil
		s.logger.Warn("snapshot fetch failed", "error", fetchErr)
		s.setState(StateError, fetchErr)
		return fetchErr
	}
	if snap.IsEmpty() {
		s.snap, s.colors = snap, nil
		s.setState(StateEmpty, nil)
		return nil
	}

	s.snap = snap
	s.colors = cluster.AssignColors(snap)
	s.logger.Info("snapshot loaded",
		"nodes", len(snap.Nodes),
		"edges", len(snap.Edges),
		"clusters", len(s.colors.Order()))
	return s.SetFilter(s.filter)
}

// SetFilter selects a cluster ("" for all) and restarts the layout over the
// derived view. The previous engine and any pending hover update are
// cancelled first.
func (s *Session) SetFilter(clusterID string) error {
	if s.disposed {
		return ErrDisposed
	}
	s.filter = clusterID
	if s.snap == nil || s.snap.IsEmpty() {
		return nil
	}
	s.stopEngine()

	s.view = cluster.Derive(s.snap, clusterID, s.colors)
	if s.view.Dropped > 0 {
		s.logger.Debug("edges outside the active view dropped",
			"filter", clusterID,
			"dropped", s.view.Dropped)
	}
	if s.view.IsEmpty() {
		s.setState(StateEmpty, nil)
		s.emit(nil)
		return nil
	}

	eng, err := layout.New(s.view.Nodes, s.view.Edges, s.sched, s.layoutConfig,
		layout.WithLogger(s.logger),
		layout.WithClusterOrder(s.view.ClusterOrder),
		layout.WithTickHandler(func(t layout.Tick) {
			metrics.LayoutTick()
			s.emit(t.Positions)
		}),
		layout.WithSettleHandler(func(st layout.Settle) {
			metrics.LayoutSettled(string(st.Reason), st.Ticks)
			s.logger.Debug("layout settled", "reason", string(st.Reason), "ticks", st.Ticks)
			if s.onSettle != nil {
				s.onSettle(st)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("starting layout: %w", err)
	}
	s.engine = eng
	s.ctrl.SetTarget(eng)
	s.setState(StateReady, nil)
	eng.Start()
	return nil
}

// Resize retargets the layout to a new surface size. Existing velocities
// are kept.
func (s *Session) Resize(width, height float64) {
	if s.disposed || width <= 0 || height <= 0 {
		return
	}
	s.layoutConfig.Width = width
	s.layoutConfig.Height = height
	b := s.ctrl.Bounds()
	b.Width, b.Height = width, height
	s.ctrl.SetBounds(b)
	if s.engine != nil {
		s.engine.Resize(width, height)
	}
}

// SetBounds updates the container position used for tooltip placement.
func (s *Session) SetBounds(r geom.Rect) {
	if s.disposed {
		return
	}
	s.ctrl.SetBounds(r)
}

// Input feeds one pointer event to the controller.
func (s *Session) Input(in interact.Input) {
	if s.disposed || s.engine == nil {
		return
	}
	s.ctrl.Handle(in)
}

// Positions returns the current node positions, or nil without a layout.
func (s *Session) Positions() []layout.Position {
	if s.engine == nil {
		return nil
	}
	return s.engine.Positions()
}

// Scene builds the scene for the current positions.
func (s *Session) Scene() viz.Scene {
	return s.scene(s.Positions())
}

// Dispose stops the engine, cancels every pending frame and timer and
// silences all callbacks. It is safe to call twice.
func (s *Session) Dispose() {
	if s.disposed {
		return
	}
	s.stopEngine()
	s.ctrl.Close()
	s.disposed = true
	s.logger.Debug("session disposed")
}

func (s *Session) stopEngine() {
	if s.engine == nil {
		return
	}
	s.engine.Stop()
	s.engine = nil
	s.ctrl.SetTarget(nil)
}

func (s *Session) scene(positions []layout.Position) viz.Scene {
	var clusters []graph.Cluster
	if s.snap != nil {
		clusters = s.snap.Clusters
	}
	cfg := s.layoutConfig
	if s.engine != nil {
		cfg = s.engine.Config()
	}
	return viz.BuildScene(positions, s.view, s.colors, s.ctrl.Viewport(), viz.SceneConfig{
		Width:      cfg.Width,
		Height:     cfg.Height,
		NodeRadius: cfg.NodeRadius,
		Clusters:   clusters,
	})
}

func (s *Session) emit(positions []layout.Position) {
	if s.render == nil || s.disposed {
		return
	}
	s.render(s.scene(positions))
}

func (s *Session) setState(st State, err error) {
	s.err = err
	if s.state == st && err == nil {
		return
	}
	s.state = st
	metrics.SessionState(string(st))
	s.logger.Debug("session state", "state", string(st))
	if s.onState != nil {
		s.onState(st, err)
	}
}

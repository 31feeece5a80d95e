package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/layout"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/source"
	"github.com/matsen/relgraph/internal/viz"
)

// DefaultMaxFrames caps a headless run that never settles.
const DefaultMaxFrames = 2000

// HeadlessOptions configures RunHeadless.
type HeadlessOptions struct {
	MinWeight float64
	Cluster   string
	Layout    layout.Config
	MaxFrames int
	Logger    *slog.Logger
}

// Result is the outcome of a headless run.
type Result struct {
	State     State             `json:"state"`
	Positions []layout.Position `json:"positions,omitempty"`
	Scene     viz.Scene         `json:"scene"`
	Ticks     int               `json:"ticks"`
	Settled   bool              `json:"settled"`
	Reason    string            `json:"reason,omitempty"`
}

// RunHeadless loads a snapshot and advances a simulated clock until the
// layout settles or MaxFrames frames have run. A fetch error is returned
// unwrapped together with a Result in StateError.
func RunHeadless(ctx context.Context, src source.Source, opts HeadlessOptions) (*Result, error) {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}
	m := loop.NewManual()
	var settle *layout.Settle
	sessOpts := []Option{
		WithLayoutConfig(opts.Layout),
		WithSettle(func(st layout.Settle) { settle = &st }),
	}
	if opts.Logger != nil {
		sessOpts = append(sessOpts, WithLogger(opts.Logger))
	}
	s := New(src, m, sessOpts...)
	defer s.Dispose()

	s.filter = opts.Cluster
	if err := s.Load(ctx, opts.MinWeight); err != nil {
		return &Result{State: s.State()}, err
	}

	res := &Result{State: s.State()}
	if s.State() != StateReady {
		res.Scene = s.Scene()
		return res, nil
	}

	for i := 0; i < opts.MaxFrames && settle == nil; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("headless layout: %w", err)
		}
		m.Frame()
	}

	eng := s.Engine()
	res.Positions = eng.Positions()
	res.Ticks = eng.Ticks()
	res.Scene = s.Scene()
	res.Scene.Viewport = interact.Identity()
	if settle != nil {
		res.Settled = true
		res.Reason = string(settle.Reason)
	}
	return res, nil
}

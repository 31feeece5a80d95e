package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/layout"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/source"
	"github.com/matsen/relgraph/internal/viz"
)

func testSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "ana", Name: "Ana", ClusterID: "red"},
			{ID: "bo", Name: "Bo", ClusterID: "red"},
			{ID: "cy", Name: "Cy", ClusterID: "blue"},
			{ID: "di", Name: "Di", ClusterID: "blue"},
		},
		Edges: []graph.Edge{
			{Source: "ana", Target: "bo", Weight: 4, AToB: 9, BToA: 1, Threads: 3},
			{Source: "bo", Target: "cy", Weight: 1, AToB: 2, BToA: 2, Threads: 1},
			{Source: "cy", Target: "di", Weight: 2, AToB: 1, BToA: 1, Threads: 1},
			{Source: "di", Target: "ghost", Weight: 5, AToB: 1, BToA: 1, Threads: 1},
		},
		Clusters: []graph.Cluster{{ID: "red", Label: "Red"}, {ID: "blue", Label: "Blue"}},
	}
}

type harness struct {
	m        *loop.Manual
	sess     *Session
	scenes   []viz.Scene
	states   []State
	activate []interact.ActivateEvent
	hovers   []interact.HoverEvent
}

func newHarness(t *testing.T, src source.Source) *harness {
	t.Helper()
	h := &harness{m: loop.NewManual()}
	h.sess = New(src, h.m,
		WithSize(800, 600),
		WithRenderer(func(s viz.Scene) { h.scenes = append(h.scenes, s) }),
		WithStateChange(func(st State, _ error) { h.states = append(h.states, st) }),
		WithActivate(func(e interact.ActivateEvent) { h.activate = append(h.activate, e) }),
		WithHover(func(e interact.HoverEvent) { h.hovers = append(h.hovers, e) }),
	)
	t.Cleanup(h.sess.Dispose)
	return h
}

func TestSession_LoadReady(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})

	require.NoError(t, h.sess.Load(context.Background(), 0))
	assert.Equal(t, StateReady, h.sess.State())
	assert.Equal(t, []State{StateLoading, StateReady}, h.states)
	require.NotNil(t, h.sess.Engine())

	h.m.Frame()
	require.NotEmpty(t, h.scenes)
	scene := h.scenes[len(h.scenes)-1]
	assert.Len(t, scene.Nodes, 4)
	assert.Len(t, scene.Edges, 3)
	assert.Len(t, scene.Legend, 2)

	h.m.RunUntilIdle(1000)
	assert.True(t, h.sess.Engine().Settled())
	assert.Zero(t, h.m.Pending())
}

func TestSession_FetchErrorRunsNoLayout(t *testing.T) {
	boom := errors.New("connection refused")
	h := newHarness(t, source.Func(func(context.Context, float64) (*graph.Snapshot, error) {
		return nil, boom
	}))

	err := h.sess.Load(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, h.sess.State())
	assert.ErrorIs(t, h.sess.Err(), boom)
	assert.Nil(t, h.sess.Engine())
	assert.Nil(t, h.sess.Positions())
	assert.Zero(t, h.m.Pending())

	h.m.Advance(time.Second)
	assert.Empty(t, h.scenes)
}

func TestSession_EmptySnapshot(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: &graph.Snapshot{}})

	require.NoError(t, h.sess.Load(context.Background(), 0))
	assert.Equal(t, StateEmpty, h.sess.State())
	assert.NoError(t, h.sess.Err())
	assert.Nil(t, h.sess.Engine())
	assert.True(t, h.sess.Scene().IsEmpty())
}

func TestSession_RetryAfterError(t *testing.T) {
	fail := true
	h := newHarness(t, source.Func(func(context.Context, float64) (*graph.Snapshot, error) {
		if fail {
			return nil, errors.New("timeout")
		}
		return testSnapshot(), nil
	}))

	require.Error(t, h.sess.Load(context.Background(), 0))
	fail = false
	require.NoError(t, h.sess.Load(context.Background(), 0))
	assert.Equal(t, StateReady, h.sess.State())
	assert.NoError(t, h.sess.Err())
}

func TestSession_FilterRestartsLayout(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})
	require.NoError(t, h.sess.Load(context.Background(), 0))
	h.m.Frame()
	full := h.scenes[len(h.scenes)-1]
	first := h.sess.Engine()

	require.NoError(t, h.sess.SetFilter("blue"))
	assert.True(t, first.Stopped())
	assert.NotSame(t, first, h.sess.Engine())

	h.m.Frame()
	blue := h.scenes[len(h.scenes)-1]
	require.Len(t, blue.Nodes, 2)
	require.Len(t, blue.Edges, 1)
	assert.Equal(t, "cy--di", blue.Edges[0].ID)

	colorOf := func(s viz.Scene, id string) string {
		for _, n := range s.Nodes {
			if n.ID == id {
				return n.Color
			}
		}
		return ""
	}
	assert.Equal(t, colorOf(full, "cy"), colorOf(blue, "cy"))

	require.NoError(t, h.sess.SetFilter("nobody"))
	assert.Equal(t, StateEmpty, h.sess.State())
	assert.Nil(t, h.sess.Engine())

	require.NoError(t, h.sess.SetFilter(""))
	assert.Equal(t, StateReady, h.sess.State())
}

func TestSession_DisposeLeavesNothingScheduled(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})
	require.NoError(t, h.sess.Load(context.Background(), 0))
	h.m.Frame()
	h.sess.Input(interact.Input{Kind: interact.InputMove, At: geom.Pt(10, 10)})
	require.NotZero(t, h.m.Pending())

	h.sess.Dispose()
	assert.Zero(t, h.m.Pending())

	scenes, hovers := len(h.scenes), len(h.hovers)
	h.m.Advance(10 * time.Second)
	assert.Len(t, h.scenes, scenes)
	assert.Len(t, h.hovers, hovers)

	assert.ErrorIs(t, h.sess.Load(context.Background(), 0), ErrDisposed)
	assert.ErrorIs(t, h.sess.SetFilter("red"), ErrDisposed)
	h.sess.Dispose()
}

func TestSession_ClickActivatesNode(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})
	require.NoError(t, h.sess.Load(context.Background(), 0))
	h.m.RunUntilIdle(1000)

	p, ok := h.sess.Engine().PositionOf("bo")
	require.True(t, ok)
	at := geom.Pt(p.X, p.Y)
	h.sess.Input(interact.Input{Kind: interact.InputDown, At: at})
	h.sess.Input(interact.Input{Kind: interact.InputMove, At: at.Add(geom.Pt(2, 1))})
	h.sess.Input(interact.Input{Kind: interact.InputUp, At: at.Add(geom.Pt(2, 1))})

	require.Len(t, h.activate, 1)
	assert.Equal(t, "bo", h.activate[0].NodeID)
}

func TestSession_DragReheatsSettledLayout(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})
	require.NoError(t, h.sess.Load(context.Background(), 0))
	h.m.RunUntilIdle(1000)
	eng := h.sess.Engine()
	require.True(t, eng.Settled())

	p, _ := eng.PositionOf("ana")
	at := geom.Pt(p.X, p.Y)
	h.sess.Input(interact.Input{Kind: interact.InputDown, At: at})
	h.sess.Input(interact.Input{Kind: interact.InputMove, At: at.Add(geom.Pt(40, 0))})
	assert.True(t, eng.Running())

	h.m.Frame()
	got, _ := eng.PositionOf("ana")
	assert.True(t, got.Pinned)
	assert.InDelta(t, p.X+40, got.X, 1e-9)

	h.sess.Input(interact.Input{Kind: interact.InputUp, At: at.Add(geom.Pt(40, 0))})
	assert.Empty(t, h.activate)
	h.m.RunUntilIdle(1000)
	assert.True(t, eng.Settled())
}

func TestSession_ResizeRecentres(t *testing.T) {
	h := newHarness(t, source.Static{Snapshot: testSnapshot()})
	require.NoError(t, h.sess.Load(context.Background(), 0))
	h.m.RunUntilIdle(1000)

	h.sess.Resize(1600, 1200)
	assert.True(t, h.sess.Engine().Running())
	h.m.RunUntilIdle(2000)

	var cx, cy float64
	positions := h.sess.Positions()
	for _, p := range positions {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(positions))
	cy /= float64(len(positions))
	assert.InDelta(t, 800, cx, 60)
	assert.InDelta(t, 600, cy, 60)
	assert.Equal(t, 1600.0, h.sess.Scene().Width)
}

func TestRunHeadless(t *testing.T) {
	res, err := RunHeadless(context.Background(), source.Static{Snapshot: testSnapshot()}, HeadlessOptions{
		Layout: layout.Config{Seed: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.True(t, res.Settled)
	assert.Len(t, res.Positions, 4)
	assert.Len(t, res.Scene.Nodes, 4)

	again, err := RunHeadless(context.Background(), source.Static{Snapshot: testSnapshot()}, HeadlessOptions{
		Layout: layout.Config{Seed: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, res.Positions, again.Positions)
}

func TestRunHeadless_ClusterAndErrors(t *testing.T) {
	res, err := RunHeadless(context.Background(), source.Static{Snapshot: testSnapshot()}, HeadlessOptions{Cluster: "red"})
	require.NoError(t, err)
	assert.Len(t, res.Positions, 2)

	res, err = RunHeadless(context.Background(), source.Static{Snapshot: &graph.Snapshot{}}, HeadlessOptions{})
	require.NoError(t, err)
	assert.Equal(t, StateEmpty, res.State)
	assert.Empty(t, res.Positions)

	boom := errors.New("bad gateway")
	res, err = RunHeadless(context.Background(), source.Func(func(context.Context, float64) (*graph.Snapshot, error) {
		return nil, boom
	}), HeadlessOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, res.State)
}

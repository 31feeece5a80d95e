package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/session"
	"github.com/matsen/relgraph/internal/source"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "solo", Name: "Solo", ClusterID: "x"},
			{ID: "ana", Name: "Ana", ClusterID: "y"},
			{ID: "bo", Name: "Bo", ClusterID: "y"},
		},
		Edges: []graph.Edge{
			{Source: "ana", Target: "bo", Weight: 3, AToB: 6, BToA: 1, Threads: 2},
			{Source: "solo", Target: "ana", Weight: 0.5, AToB: 1, BToA: 1, Threads: 1},
		},
		Clusters: []graph.Cluster{{ID: "x", Label: "X"}, {ID: "y", Label: "Y"}},
	}
}

func newTestServer(src source.Source) *Server {
	return New(Config{FrameInterval: 2 * time.Millisecond}, src)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func failing(err error) source.Source {
	return source.Func(func(context.Context, float64) (*graph.Snapshot, error) {
		return nil, err
	})
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(source.Static{Snapshot: testSnapshot()})

	rec := get(t, s, "/api/snapshot?min_weight=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, session.StateReady, resp.State)
	assert.Len(t, resp.Nodes, 3)
	assert.Len(t, resp.Edges, 1)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSnapshot_EmptyAndErrors(t *testing.T) {
	empty := newTestServer(source.Static{Snapshot: &graph.Snapshot{}})
	rec := get(t, empty, "/api/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"empty"`)

	broken := newTestServer(failing(source.ErrNetwork))
	rec = get(t, broken, "/api/snapshot")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "FETCH_FAILED")

	ok := newTestServer(source.Static{Snapshot: testSnapshot()})
	for _, target := range []string{
		"/api/snapshot?min_weight=heavy",
		"/api/snapshot?min_weight=-1",
		"/api/layout?width=0",
		"/api/layout?height=tall",
		"/api/classify?min_weight=x",
	} {
		rec = get(t, ok, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestLayout(t *testing.T) {
	s := newTestServer(source.Static{Snapshot: testSnapshot()})

	rec := get(t, s, "/api/layout?width=1000&height=700")
	require.Equal(t, http.StatusOK, rec.Code)
	var res session.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, session.StateReady, res.State)
	assert.True(t, res.Settled)
	assert.Len(t, res.Positions, 3)
	assert.Equal(t, 1000.0, res.Scene.Width)

	rec = get(t, s, "/api/layout?cluster=y")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Positions, 2)

	broken := newTestServer(failing(errors.New("upstream down")))
	assert.Equal(t, http.StatusBadGateway, get(t, broken, "/api/layout").Code)
}

func TestClassify(t *testing.T) {
	s := newTestServer(source.Static{Snapshot: testSnapshot()})

	rec := get(t, s, "/api/classify")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Edges, 2)
	assert.Equal(t, "ana--bo", resp.Edges[0].ID)
	assert.True(t, resp.Edges[0].Asymmetric)
	assert.Equal(t, graph.DirectionAToB, resp.Edges[0].Dominant)
	assert.False(t, resp.Edges[1].Asymmetric)
}

func TestViz(t *testing.T) {
	s := newTestServer(source.Static{Snapshot: testSnapshot()})

	rec := get(t, s, "/viz?offline=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "<svg")

	empty := newTestServer(source.Static{Snapshot: &graph.Snapshot{}})
	rec = get(t, empty, "/viz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No relationships to show")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(source.Static{Snapshot: testSnapshot()})
	get(t, s, "/api/layout")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relgraph_layout_ticks_total")
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func TestLive_FilterAndActivate(t *testing.T) {
	conn := dial(t, newTestServer(source.Static{Snapshot: testSnapshot()}))

	state := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MsgState && m.State == session.StateReady
	})
	assert.NotEmpty(t, state.Session)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgFilter, Cluster: "x"}))
	scene := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MsgScene && m.Scene.Filter == "x"
	})
	require.Len(t, scene.Scene.Nodes, 1)
	assert.Empty(t, scene.Scene.Edges)

	// A lone node is held at the center of the surface.
	at := geom.Pt(scene.Scene.Nodes[0].X, scene.Scene.Nodes[0].Y)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgInput, Input: &interact.Input{Kind: interact.InputDown, At: at}}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgInput, Input: &interact.Input{Kind: interact.InputUp, At: at}}))

	msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MsgActivate })
	assert.Equal(t, "solo", msg.NodeID)
}

func TestLive_FetchErrorState(t *testing.T) {
	conn := dial(t, newTestServer(failing(source.ErrTimeout)))

	msg := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MsgState && m.State == session.StateError
	})
	assert.Contains(t, msg.Error, "timed out")
}

func TestLive_DragUnderMoveFloodReleases(t *testing.T) {
	conn := dial(t, newTestServer(source.Static{Snapshot: testSnapshot()}))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgFilter, Cluster: "x"}))
	scene := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MsgScene && m.Scene.Filter == "x" && len(m.Scene.Nodes) == 1
	})
	at := geom.Pt(scene.Scene.Nodes[0].X, scene.Scene.Nodes[0].Y)

	input := func(kind interact.InputKind, p geom.Point) {
		require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgInput, Input: &interact.Input{Kind: kind, At: p}}))
	}
	input(interact.InputDown, at)
	for i := 0; i < 1000; i++ {
		input(interact.InputMove, at.Add(geom.Pt(float64(i%120), 0)))
	}
	input(interact.InputMove, at.Add(geom.Pt(150, 0)))
	input(interact.InputUp, at.Add(geom.Pt(150, 0)))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgResize, Width: 1000, Height: 700}))

	activated := false
	after := readUntil(t, conn, func(m ServerMessage) bool {
		if m.Type == MsgActivate {
			activated = true
		}
		return m.Type == MsgScene && m.Scene.Width == 1000
	})
	assert.False(t, activated)
	require.Len(t, after.Scene.Nodes, 1)
	assert.False(t, after.Scene.Nodes[0].Pinned)
}

func TestMoveBatch(t *testing.T) {
	var b moveBatch
	require.True(t, b.add(interact.Input{Kind: interact.InputMove, Pointer: interact.PointerMouse, At: geom.Pt(1, 1)}))
	require.True(t, b.add(interact.Input{Kind: interact.InputMove, Pointer: interact.PointerTouch, ID: 2, At: geom.Pt(5, 5)}))
	require.True(t, b.add(interact.Input{Kind: interact.InputMove, Pointer: interact.PointerMouse, At: geom.Pt(9, 9)}))

	moves := b.take()
	require.Len(t, moves, 2)
	assert.Equal(t, geom.Pt(9, 9), moves[0].At)
	assert.Equal(t, geom.Pt(5, 5), moves[1].At)

	assert.False(t, b.add(interact.Input{Kind: interact.InputMove, At: geom.Pt(3, 3)}))
}

package viz

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matsen/relgraph/internal/cluster"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "ana", Name: "Ana <A>", ClusterID: "red"},
			{ID: "bo", Name: "Bo", ClusterID: "red"},
			{ID: "cy", ClusterID: "blue"},
		},
		Edges: []graph.Edge{
			{Source: "ana", Target: "bo", Weight: 4, AToB: 9, BToA: 1, Threads: 3},
			{Source: "bo", Target: "cy", Weight: 1, AToB: 2, BToA: 2, Threads: 1},
			{Source: "cy", Target: "ana", Weight: 20, AToB: 0, BToA: 6, Threads: 2},
		},
		Clusters: []graph.Cluster{
			{ID: "red", Label: "Red team"},
			{ID: "blue"},
		},
	}
}

func testScene(t *testing.T, clusterID string) Scene {
	t.Helper()
	s := testSnapshot()
	colors := cluster.AssignColors(s)
	view := cluster.Derive(s, clusterID, colors)
	positions := []layout.Position{
		{ID: "ana", X: 100, Y: 100},
		{ID: "bo", X: 300, Y: 100, Pinned: true},
		{ID: "cy", X: 200, Y: 300},
	}
	return BuildScene(positions, view, colors, interact.Identity(), SceneConfig{
		Width:      800,
		Height:     600,
		NodeRadius: 20,
		Clusters:   s.Clusters,
	})
}

func TestBuildScene(t *testing.T) {
	scene := testScene(t, "")

	require.Len(t, scene.Nodes, 3)
	require.Len(t, scene.Edges, 3)

	ana := scene.Nodes[0]
	assert.Equal(t, "Ana <A>", ana.Label)
	assert.Equal(t, cluster.Palette[0], ana.Color)
	assert.Equal(t, 2, ana.Degree)
	assert.Equal(t, "cy", scene.Nodes[2].Label)
	assert.True(t, scene.Nodes[1].Pinned)

	e := scene.Edges[0]
	assert.Equal(t, "ana--bo", e.ID)
	assert.True(t, e.Asymmetric)
	assert.Equal(t, "a_to_b", e.Direction)
	assert.Equal(t, 100.0, e.X1)
	assert.Equal(t, 300.0, e.X2)

	assert.False(t, scene.Edges[1].Asymmetric)
	assert.Equal(t, "b_to_a", scene.Edges[2].Direction)
	assert.Equal(t, MaxEdgeWidth, scene.Edges[2].Width)

	require.Len(t, scene.Legend, 2)
	assert.Equal(t, LegendEntry{ClusterID: "red", Label: "Red team", Color: cluster.Palette[0], Count: 2}, scene.Legend[0])
	assert.Equal(t, "blue", scene.Legend[1].Label)
}

func TestBuildScene_FilteredKeepsColors(t *testing.T) {
	full := testScene(t, "")
	blue := testScene(t, "blue")

	require.Len(t, blue.Nodes, 1)
	assert.Empty(t, blue.Edges)
	assert.Equal(t, full.Nodes[2].Color, blue.Nodes[0].Color)
	assert.Equal(t, "blue", blue.Filter)
}

func TestBuildScene_SkipsUnpositionedNodes(t *testing.T) {
	s := testSnapshot()
	colors := cluster.AssignColors(s)
	view := cluster.Derive(s, "", colors)
	scene := BuildScene([]layout.Position{{ID: "ana"}, {ID: "bo"}}, view, colors, interact.Identity(), SceneConfig{})

	assert.Len(t, scene.Nodes, 2)
	require.Len(t, scene.Edges, 1)
	assert.Equal(t, "ana--bo", scene.Edges[0].ID)
}

func TestSceneIsEmpty(t *testing.T) {
	assert.True(t, Scene{}.IsEmpty())
	assert.True(t, Scene{Width: 800, Height: 600}.IsEmpty())
	assert.False(t, testScene(t, "").IsEmpty())
}

func TestEdgeWidth(t *testing.T) {
	assert.Equal(t, MinEdgeWidth, EdgeWidth(0))
	assert.Equal(t, 2.0, EdgeWidth(2))
	assert.Equal(t, MaxEdgeWidth, EdgeWidth(100))
}

func TestToCytoscapeJSON(t *testing.T) {
	scene := testScene(t, "")
	out, err := scene.ToCytoscapeJSON()
	require.NoError(t, err)

	var elements CytoscapeElements
	require.NoError(t, json.Unmarshal([]byte(out), &elements))
	require.Len(t, elements.Nodes, 3)
	assert.Equal(t, CytoscapePosition{X: 300, Y: 100}, elements.Nodes[1].Position)
	assert.True(t, elements.Nodes[1].Locked)
	assert.Equal(t, "ana--bo", elements.Edges[0].Data.ID)
}

func TestWriteSVG(t *testing.T) {
	scene := testScene(t, "")
	var sb strings.Builder
	require.NoError(t, WriteSVG(&sb, &scene))
	svg := sb.String()

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "Ana &lt;A&gt;")
	assert.NotContains(t, svg, "Ana <A>")
	assert.Equal(t, 1, strings.Count(svg, `marker-end="url(#arrow)"`))
	assert.Equal(t, 1, strings.Count(svg, `marker-start="url(#arrow)"`))
	// Edges come before nodes.
	assert.Less(t, strings.Index(svg, `class="edges"`), strings.Index(svg, `class="nodes"`))
	// Directed edge is trimmed to the node borders.
	assert.Contains(t, svg, `x1="120.00" y1="100.00" x2="280.00" y2="100.00"`)
}

func TestGenerateHTML(t *testing.T) {
	scene := testScene(t, "")
	out, err := GenerateHTML(&scene, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, out, "cytoscape.min.js")
	assert.Contains(t, out, "name: 'preset'")
	assert.Contains(t, out, "Red team")
	assert.Contains(t, out, "ana--bo")
	assert.Contains(t, out, "<title>Relationship Graph</title>")
}

func TestGenerateHTML_Offline(t *testing.T) {
	scene := testScene(t, "")
	out, err := GenerateHTML(&scene, HTMLOptions{Title: "Team", Offline: true})
	require.NoError(t, err)

	assert.NotContains(t, out, "cytoscape.min.js")
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "<title>Team</title>")
}

func TestGenerateHTML_Empty(t *testing.T) {
	out, err := GenerateHTML(&Scene{}, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "No relationships to show")

	_, err = GenerateHTML(nil, DefaultOptions())
	assert.Error(t, err)
}

package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/matsen/relgraph/internal/config"
	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/source"
	"github.com/matsen/relgraph/internal/storage"
	"github.com/matsen/relgraph/internal/viz"
)

func init() {
	color.NoColor = true
}

func TestFetchExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"network", fmt.Errorf("fetch: %w", source.ErrNetwork), ExitFetchError},
		{"auth", source.ErrAuth, ExitFetchError},
		{"timeout", source.ErrTimeout, ExitFetchError},
		{"bad body", fmt.Errorf("%w: truncated", source.ErrInvalidResponse), ExitDataError},
		{"bad snapshot", fmt.Errorf("reading workspace files: %w", graph.ErrSelfEdge), ExitDataError},
		{"no cache", source.ErrNoCache, ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fetchExitCode(tt.err); got != tt.want {
				t.Errorf("fetchExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatTable(t *testing.T) {
	got := formatTable([]string{"ID", "COLOR"}, [][]string{
		{"engineering", "#4E79A7"},
		{"ops", "#F28E2B"},
	})
	want := "  ID           COLOR\n" +
		"  engineering  #4E79A7\n" +
		"  ops          #F28E2B\n"
	if got != want {
		t.Errorf("formatTable() =\n%q\nwant\n%q", got, want)
	}
	if formatTable([]string{"ID"}, nil) != "" {
		t.Error("formatTable() with no rows should be empty")
	}
}

func TestFormatWeight(t *testing.T) {
	tests := map[float64]string{
		2:    "2",
		2.5:  "2.5",
		0.25: "0.25",
		0:    "0",
	}
	for in, want := range tests {
		if got := formatWeight(in); got != want {
			t.Errorf("formatWeight(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestClusterInfos(t *testing.T) {
	snap := &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "a", ClusterID: "ops"},
			{ID: "b", ClusterID: "eng"},
			{ID: "c", ClusterID: "ops"},
		},
		Clusters: []graph.Cluster{{ID: "eng", Label: "Engineering"}, {ID: "ops"}},
	}

	got := clusterInfos(snap)
	if len(got) != 2 {
		t.Fatalf("clusterInfos() returned %d clusters, want 2", len(got))
	}
	// Color order follows first appearance in the node list.
	if got[0].ID != "ops" || got[0].Nodes != 2 || got[0].Label != "ops" {
		t.Errorf("first cluster = %+v", got[0])
	}
	if got[1].Label != "Engineering" || got[1].Nodes != 1 {
		t.Errorf("second cluster = %+v", got[1])
	}
	if got[0].Color == got[1].Color {
		t.Errorf("clusters share color %s", got[0].Color)
	}
}

func TestRenderScene(t *testing.T) {
	scene := &viz.Scene{
		Width:  200,
		Height: 100,
		Nodes:  []viz.Node{{ID: "a", Label: "A", X: 50, Y: 50, Radius: 10, Color: "#000"}},
	}

	svg, err := renderScene(scene, FormatSVG, viz.HTMLOptions{})
	if err != nil {
		t.Fatalf("renderScene(svg) error = %v", err)
	}
	if !strings.HasPrefix(svg, "<svg") {
		t.Errorf("svg output starts with %q", svg[:10])
	}

	page, err := renderScene(scene, FormatHTML, viz.HTMLOptions{Offline: true})
	if err != nil {
		t.Fatalf("renderScene(html) error = %v", err)
	}
	if !strings.Contains(page, "<!DOCTYPE html>") {
		t.Error("html output is not a page")
	}

	if _, err := renderScene(scene, "png", viz.HTMLOptions{}); err == nil {
		t.Error("renderScene(png) should fail")
	}
}

func TestResolveSource(t *testing.T) {
	root := t.TempDir()
	if err := config.InitWorkspace(root); err != nil {
		t.Fatalf("InitWorkspace() error = %v", err)
	}
	snap := &graph.Snapshot{Nodes: []graph.Node{{ID: "a", ClusterID: "x"}}}
	if err := storage.WriteSnapshot(config.JSONLPaths(root), snap); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	saved := globalCfg
	t.Cleanup(func() { globalCfg = saved })
	globalCfg = &config.GlobalConfig{WorkspacePath: root}

	src, kind, err := resolveSource(SourceAuto)
	if err != nil {
		t.Fatalf("resolveSource() error = %v", err)
	}
	if kind != SourceFiles {
		t.Errorf("kind = %q, want files", kind)
	}
	if _, ok := src.(source.Files); !ok {
		t.Errorf("source = %T, want source.Files", src)
	}

	if _, kind, _ = resolveSource(SourceCache); kind != SourceCache {
		t.Errorf("kind = %q, want cache", kind)
	}

	globalCfg = &config.GlobalConfig{WorkspacePath: root, APIURL: "http://example.invalid/api"}
	if _, kind, _ = resolveSource(SourceAuto); kind != SourceAPI {
		t.Errorf("kind = %q, want api", kind)
	}

	if _, _, err := resolveSource("ftp"); err == nil {
		t.Error("resolveSource(ftp) should fail")
	}
}

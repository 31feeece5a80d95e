package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/relgraph/internal/graph"
)

func workspacePaths(t *testing.T) JSONLPaths {
	t.Helper()
	dir := t.TempDir()
	return JSONLPaths{
		Nodes:    filepath.Join(dir, "nodes.jsonl"),
		Edges:    filepath.Join(dir, "edges.jsonl"),
		Clusters: filepath.Join(dir, "clusters.jsonl"),
	}
}

func sampleSnapshot() *graph.Snapshot {
	return &graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "ana", Name: "Ana", ClusterID: "red", Portrait: "https://example.com/ana.png"},
			{ID: "bo", Name: "Bo", ClusterID: "red"},
			{ID: "cy", Name: "Cy", ClusterID: "blue"},
		},
		Edges: []graph.Edge{
			{Source: "ana", Target: "bo", Weight: 4, AToB: 9, BToA: 1, Threads: 3},
			{Source: "bo", Target: "cy", Weight: 1, AToB: 2, BToA: 2, Threads: 1},
			{Source: "cy", Target: "ana", Weight: 2.5, AToB: 0, BToA: 6, Threads: 2},
		},
		Clusters: []graph.Cluster{
			{ID: "red", Label: "Red"},
			{ID: "blue", Label: "Blue"},
		},
	}
}

func TestReadNodes_NonExistentFile(t *testing.T) {
	nodes, err := ReadNodes("/nonexistent/path/nodes.jsonl")
	if err != nil {
		t.Fatalf("ReadNodes() error = %v (should return nil for nonexistent file)", err)
	}
	if len(nodes) != 0 {
		t.Errorf("ReadNodes() returned %v, want nil or empty slice", nodes)
	}
}

func TestReadEdges_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.jsonl")
	content := `{"source":"a","target":"b","weight":2,"a_to_b":3,"b_to_a":1,"threads":4}

{"source":"b","target":"c","weight":1}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	edges, err := ReadEdges(path)
	if err != nil {
		t.Fatalf("ReadEdges() error = %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("ReadEdges() returned %d edges, want 2", len(edges))
	}
	if edges[0].AToB != 3 || edges[0].BToA != 1 || edges[0].Threads != 4 {
		t.Errorf("edge counts = %+v, want 3/1/4", edges[0])
	}
}

func TestReadClusters_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.jsonl")
	if err := os.WriteFile(path, []byte("{\"id\":\"a\"}\nnot json\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := ReadClusters(path)
	if err == nil {
		t.Fatal("ReadClusters() expected error for invalid JSON")
	}
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	paths := workspacePaths(t)
	want := sampleSnapshot()

	if err := WriteSnapshot(paths, want); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	got, err := ReadSnapshot(paths, 0)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}

	if len(got.Nodes) != 3 || len(got.Edges) != 3 || len(got.Clusters) != 2 {
		t.Fatalf("ReadSnapshot() = %d/%d/%d records, want 3/3/2", len(got.Nodes), len(got.Edges), len(got.Clusters))
	}
	if got.Nodes[0].Portrait != want.Nodes[0].Portrait {
		t.Errorf("Portrait = %q, want %q", got.Nodes[0].Portrait, want.Nodes[0].Portrait)
	}
	if got.Edges[2].Weight != 2.5 {
		t.Errorf("Weight = %v, want 2.5", got.Edges[2].Weight)
	}
}

func TestReadSnapshot_MinWeight(t *testing.T) {
	paths := workspacePaths(t)
	if err := WriteSnapshot(paths, sampleSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	got, err := ReadSnapshot(paths, 2)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if len(got.Edges) != 2 {
		t.Errorf("ReadSnapshot(minWeight=2) returned %d edges, want 2", len(got.Edges))
	}
	if len(got.Nodes) != 3 {
		t.Errorf("ReadSnapshot(minWeight=2) returned %d nodes, want 3", len(got.Nodes))
	}
}

func TestReadSnapshot_Invalid(t *testing.T) {
	paths := workspacePaths(t)
	snap := sampleSnapshot()
	snap.Nodes = append(snap.Nodes, graph.Node{ID: "ana", ClusterID: "red"})
	if err := WriteSnapshot(paths, snap); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	_, err := ReadSnapshot(paths, 0)
	if !errors.Is(err, graph.ErrDuplicateNode) {
		t.Errorf("ReadSnapshot() error = %v, want ErrDuplicateNode", err)
	}
}

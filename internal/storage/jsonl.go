// Package storage handles data persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/relgraph/internal/graph"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// JSONLPaths names the three workspace files that make up a snapshot.
type JSONLPaths struct {
	Nodes    string
	Edges    string
	Clusters string
}

// readJSONL reads one record per line. A missing file reads as empty.
func readJSONL[T any](path, what string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s file: %w", what, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", what, lineNum, err)
		}
		out = append(out, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s file: %w", what, err)
	}

	return out, nil
}

// writeJSONL writes all records to path, replacing existing content.
func writeJSONL[T any](path, what string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s file: %w", what, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding %s %d: %w", what, i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing %s %d: %w", what, i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return w.Flush()
}

// ReadNodes reads all nodes from a JSONL file.
func ReadNodes(path string) ([]graph.Node, error) {
	return readJSONL[graph.Node](path, "nodes")
}

// ReadEdges reads all edges from a JSONL file.
func ReadEdges(path string) ([]graph.Edge, error) {
	return readJSONL[graph.Edge](path, "edges")
}

// ReadClusters reads all clusters from a JSONL file.
func ReadClusters(path string) ([]graph.Cluster, error) {
	return readJSONL[graph.Cluster](path, "clusters")
}

// ReadSnapshot reads the three files and validates the result. Edges below
// minWeight are dropped.
func ReadSnapshot(paths JSONLPaths, minWeight float64) (*graph.Snapshot, error) {
	nodes, err := ReadNodes(paths.Nodes)
	if err != nil {
		return nil, err
	}
	edges, err := ReadEdges(paths.Edges)
	if err != nil {
		return nil, err
	}
	clusters, err := ReadClusters(paths.Clusters)
	if err != nil {
		return nil, err
	}

	snap := &graph.Snapshot{Nodes: nodes, Edges: edges, Clusters: clusters}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap.FilterMinWeight(minWeight), nil
}

// WriteSnapshot writes a snapshot to the three files. Layout fields on the
// nodes are not persisted.
func WriteSnapshot(paths JSONLPaths, snap *graph.Snapshot) error {
	nodes := make([]graph.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		n.Pos, n.Pin = nil, nil
		nodes[i] = n
	}
	if err := writeJSONL(paths.Nodes, "nodes", nodes); err != nil {
		return err
	}
	if err := writeJSONL(paths.Edges, "edges", snap.Edges); err != nil {
		return err
	}
	return writeJSONL(paths.Clusters, "clusters", snap.Clusters)
}

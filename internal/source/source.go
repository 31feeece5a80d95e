// Package source fetches graph snapshots from the remote API, the
// workspace JSONL files or the SQLite cache.
package source

import (
	"context"

	"github.com/matsen/relgraph/internal/graph"
)

// Source produces snapshots. Edges lighter than minWeight are excluded.
type Source interface {
	Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, minWeight float64) (*graph.Snapshot, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	return f(ctx, minWeight)
}

// Static serves a fixed snapshot.
type Static struct {
	Snapshot *graph.Snapshot
}

// Fetch returns the snapshot filtered by minWeight.
func (s Static) Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Snapshot.FilterMinWeight(minWeight), nil
}

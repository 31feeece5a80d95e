package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/metrics"
	"github.com/matsen/relgraph/internal/storage"
)

// Files reads snapshots from the workspace JSONL files.
type Files struct {
	Paths storage.JSONLPaths
}

// Fetch reads and validates the files.
func (f Files) Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := storage.ReadSnapshot(f.Paths, minWeight)
	metrics.ObserveFetch("files", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("reading workspace files: %w", err)
	}
	return snap, nil
}

// Cache reads snapshots from the SQLite cache built by `relgraph rebuild`.
type Cache struct {
	Path string
}

// Fetch opens the cache, reads one snapshot and closes it again.
func (c Cache) Fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	start := time.Now()
	snap, err := c.fetch(ctx, minWeight)
	metrics.ObserveFetch("cache", time.Since(start), err)
	return snap, err
}

func (c Cache) fetch(ctx context.Context, minWeight float64) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(c.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoCache, c.Path)
		}
		return nil, err
	}
	db, err := storage.OpenDB(c.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snap, err := db.Snapshot(minWeight)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	return snap, nil
}

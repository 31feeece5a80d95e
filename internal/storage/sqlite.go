package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/relgraph/internal/graph"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection holding the snapshot cache.
type DB struct {
	db *sql.DB
}

// Counts reports how many records a rebuild wrote.
type Counts struct {
	Nodes    int `json:"nodes"`
	Edges    int `json:"edges"`
	Clusters int `json:"clusters"`
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cluster_id TEXT NOT NULL,
			portrait TEXT
		);

		CREATE TABLE IF NOT EXISTS clusters (
			seq INTEGER NOT NULL,
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_cluster ON nodes(cluster_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return createEdgesSchema(db)
}

// RebuildFromJSONL clears the database and rebuilds it from the workspace
// JSONL files in a single transaction.
func (d *DB) RebuildFromJSONL(paths JSONLPaths) (Counts, error) {
	snap, err := ReadSnapshot(paths, 0)
	if err != nil {
		return Counts{}, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.Replace(snap)
}

// Replace swaps the cached snapshot for snap.
func (d *DB) Replace(snap *graph.Snapshot) (Counts, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return Counts{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "edges", "clusters"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return Counts{}, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (seq, id, name, cluster_id, portrait)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Counts{}, fmt.Errorf("preparing nodes insert: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range snap.Nodes {
		if _, err := nodeStmt.Exec(i, n.ID, n.Name, n.ClusterID, nullableStringValue(n.Portrait)); err != nil {
			return Counts{}, fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	clusterStmt, err := tx.Prepare(`INSERT INTO clusters (seq, id, label) VALUES (?, ?, ?)`)
	if err != nil {
		return Counts{}, fmt.Errorf("preparing clusters insert: %w", err)
	}
	defer clusterStmt.Close()

	for i, c := range snap.Clusters {
		if _, err := clusterStmt.Exec(i, c.ID, c.Label); err != nil {
			return Counts{}, fmt.Errorf("inserting cluster %s: %w", c.ID, err)
		}
	}

	if err := insertEdges(tx, snap.Edges); err != nil {
		return Counts{}, err
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("committing rebuild: %w", err)
	}

	return Counts{
		Nodes:    len(snap.Nodes),
		Edges:    len(snap.Edges),
		Clusters: len(snap.Clusters),
	}, nil
}

// Snapshot loads the cached snapshot, keeping only edges of at least
// minWeight. Nodes and clusters come back in their original order.
func (d *DB) Snapshot(minWeight float64) (*graph.Snapshot, error) {
	snap := &graph.Snapshot{}

	rows, err := d.db.Query(`SELECT id, name, cluster_id, portrait FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n graph.Node
		var portrait sql.NullString
		if err := rows.Scan(&n.ID, &n.Name, &n.ClusterID, &portrait); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Portrait = portrait.String
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := d.db.Query(`SELECT id, label FROM clusters ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying clusters: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c graph.Cluster
		if err := crows.Scan(&c.ID, &c.Label); err != nil {
			return nil, fmt.Errorf("scanning cluster: %w", err)
		}
		snap.Clusters = append(snap.Clusters, c)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}

	snap.Edges, err = d.EdgesMinWeight(minWeight)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// nullableStringValue returns nil for empty strings, otherwise the string.
func nullableStringValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

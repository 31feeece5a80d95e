package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/relgraph/internal/graph"
)

// createEdgesSchema creates the edges table and indexes.
func createEdgesSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS edges (
			seq INTEGER NOT NULL,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			weight REAL NOT NULL,
			a_to_b INTEGER NOT NULL DEFAULT 0,
			b_to_a INTEGER NOT NULL DEFAULT 0,
			threads INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (source_id, target_id)
		);

		CREATE INDEX IF NOT EXISTS idx_edges_weight ON edges(weight);
		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`
	_, err := db.Exec(schema)
	return err
}

func insertEdges(tx *sql.Tx, edges []graph.Edge) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO edges (seq, source_id, target_id, weight, a_to_b, b_to_a, threads)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edges insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range edges {
		_, err = stmt.Exec(i, e.Source, e.Target, e.Weight, e.AToB, e.BToA, e.Threads)
		if err != nil {
			return fmt.Errorf("inserting edge %s: %w", e.ID(), err)
		}
	}
	return nil
}

// EdgesMinWeight returns the edges whose weight is at least minWeight, in
// their original order.
func (d *DB) EdgesMinWeight(minWeight float64) ([]graph.Edge, error) {
	rows, err := d.db.Query(`
		SELECT source_id, target_id, weight, a_to_b, b_to_a, threads
		FROM edges
		WHERE weight >= ?
		ORDER BY seq
	`, minWeight)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// scanEdges scans rows into a slice of edges.
func scanEdges(rows *sql.Rows) ([]graph.Edge, error) {
	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight, &e.AToB, &e.BToA, &e.Threads); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

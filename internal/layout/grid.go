package layout

import (
	"math"

	"github.com/matsen/relgraph/internal/geom"
)

// ClusterGrid assigns each cluster the center of one cell of a roughly
// square grid laid over a width x height surface, in the given order.
func ClusterGrid(order []string, width, height float64) map[string]geom.Point {
	cells := make(map[string]geom.Point, len(order))
	k := len(order)
	if k == 0 {
		return cells
	}
	cols := int(math.Ceil(math.Sqrt(float64(k))))
	rows := int(math.Ceil(float64(k) / float64(cols)))
	cw := width / float64(cols)
	ch := height / float64(rows)
	for i, id := range order {
		col := i % cols
		row := i / cols
		cells[id] = geom.Point{
			X: (float64(col) + 0.5) * cw,
			Y: (float64(row) + 0.5) * ch,
		}
	}
	return cells
}

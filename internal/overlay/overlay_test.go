package overlay

import (
	"testing"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/stretchr/testify/assert"
)

func TestPosition_FlipBoundary(t *testing.T) {
	bounds := geom.Rect{Left: 100, Top: 50, Width: 1000, Height: 500}

	tests := []struct {
		name  string
		relX  float64
		side  Side
		wantX float64
	}{
		{"left edge", 0, SideRight, 12},
		{"64 percent", 640, SideRight, 652},
		{"exactly 65 percent", 650, SideRight, 662},
		{"66 percent", 660, SideLeft, 648},
		{"right edge", 1000, SideLeft, 988},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Position(geom.Pt(bounds.Left+tt.relX, bounds.Top+40), bounds)
			assert.Equal(t, tt.side, a.Side)
			assert.Equal(t, tt.wantX, a.X)
			assert.Equal(t, 32.0, a.Y)
		})
	}
}

func TestThrottle_CoalescesToLatest(t *testing.T) {
	m := loop.NewManual()
	var got []int
	th := NewThrottle(m, func(v int) { got = append(got, v) })

	for i := 1; i <= 10; i++ {
		th.Update(i)
	}
	assert.True(t, th.Pending())
	assert.Equal(t, 1, m.Pending())

	m.Frame()
	assert.Equal(t, []int{10}, got)
	assert.False(t, th.Pending())

	m.Frame()
	assert.Equal(t, []int{10}, got)

	th.Update(11)
	th.Update(12)
	m.Frame()
	assert.Equal(t, []int{10, 12}, got)
	assert.Equal(t, 2, th.Delivered())
}

func TestThrottle_Cancel(t *testing.T) {
	m := loop.NewManual()
	calls := 0
	th := NewThrottle(m, func(string) { calls++ })

	th.Update("a")
	th.Cancel()
	assert.Equal(t, 0, m.Pending())
	m.Frame()
	assert.Equal(t, 0, calls)

	th.Cancel()
	th.Update("b")
	m.Frame()
	assert.Equal(t, 1, calls)
}

package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_FrameRunsQueuedCallbacksOnce(t *testing.T) {
	m := NewManual()
	calls := 0
	m.RequestFrame(func(time.Time) { calls++ })

	assert.Equal(t, 1, m.Frame())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Frame())
	assert.Equal(t, 1, calls)
}

func TestManual_RequestDuringFrameRunsNextFrame(t *testing.T) {
	m := NewManual()
	var seen []int
	var tick func(time.Time)
	n := 0
	tick = func(time.Time) {
		n++
		seen = append(seen, n)
		if n < 3 {
			m.RequestFrame(tick)
		}
	}
	m.RequestFrame(tick)

	m.Frame()
	assert.Equal(t, []int{1}, seen)
	m.Frame()
	m.Frame()
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CancelFrame(t *testing.T) {
	m := NewManual()
	fired := false
	h := m.RequestFrame(func(time.Time) { fired = true })
	m.CancelFrame(h)
	m.Frame()
	assert.False(t, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CancelWithinSameBatch(t *testing.T) {
	m := NewManual()
	fired := false
	var second Handle
	m.RequestFrame(func(time.Time) { m.CancelFrame(second) })
	second = m.RequestFrame(func(time.Time) { fired = true })

	assert.Equal(t, 1, m.Frame())
	assert.False(t, fired)
}

func TestManual_TimersFireInDueOrder(t *testing.T) {
	m := NewManual()
	var order []string
	m.AfterFunc(50*time.Millisecond, func() { order = append(order, "late") })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, "early") })
	cancelled := m.AfterFunc(30*time.Millisecond, func() { order = append(order, "cancelled") })
	m.CancelTimer(cancelled)

	m.Advance(10 * time.Millisecond)
	assert.Empty(t, order)
	m.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestManual_RunUntilIdleJumpsToTimers(t *testing.T) {
	m := NewManual()
	fired := false
	m.AfterFunc(10*time.Second, func() { fired = true })

	frames := m.RunUntilIdle(10)
	require.True(t, fired)
	assert.LessOrEqual(t, frames, 2)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_RunUntilIdleRespectsCap(t *testing.T) {
	m := NewManual()
	var forever func(time.Time)
	forever = func(time.Time) { m.RequestFrame(forever) }
	m.RequestFrame(forever)

	assert.Equal(t, 25, m.RunUntilIdle(25))
	assert.Equal(t, 1, m.Pending())
}

func TestManual_NowAdvancesByFrameInterval(t *testing.T) {
	m := NewManual()
	start := m.Now()
	m.Frame()
	m.Frame()
	assert.Equal(t, 2*FrameInterval, m.Now().Sub(start))
	assert.Equal(t, 2, m.Frames())
}

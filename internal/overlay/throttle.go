package overlay

import (
	"time"

	"github.com/matsen/relgraph/internal/loop"
)

// Throttle coalesces bursts of updates to at most one delivery per frame.
// Only the latest value is delivered. Like the scheduler it runs on, it is
// not safe for concurrent use.
type Throttle[T any] struct {
	sched   loop.Scheduler
	deliver func(T)
	latest  T
	frame   loop.Handle

	delivered int
}

// NewThrottle returns a Throttle that hands values to deliver on sched's
// frames.
func NewThrottle[T any](sched loop.Scheduler, deliver func(T)) *Throttle[T] {
	return &Throttle[T]{sched: sched, deliver: deliver}
}

// Update stores v and schedules a delivery if none is pending.
func (t *Throttle[T]) Update(v T) {
	t.latest = v
	if t.frame != 0 {
		return
	}
	t.frame = t.sched.RequestFrame(t.flush)
}

func (t *Throttle[T]) flush(time.Time) {
	t.frame = 0
	v := t.latest
	var zero T
	t.latest = zero
	t.delivered++
	t.deliver(v)
}

// Cancel drops a pending delivery.
func (t *Throttle[T]) Cancel() {
	if t.frame == 0 {
		return
	}
	t.sched.CancelFrame(t.frame)
	t.frame = 0
	var zero T
	t.latest = zero
}

// Pending reports whether a delivery is scheduled.
func (t *Throttle[T]) Pending() bool { return t.frame != 0 }

// Delivered returns how many values have been delivered.
func (t *Throttle[T]) Delivered() int { return t.delivered }

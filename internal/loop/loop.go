// Package loop provides the cooperative, single-threaded scheduling used by
// the layout engine and the interaction pipeline. Work is suspended only at
// frame boundaries and timers; nothing blocks.
//
// Two schedulers implement the same interface: Manual, a virtual clock that
// tests and headless runs step explicitly, and Loop, a real-time event loop
// that owns one goroutine.
package loop

import (
	"sort"
	"time"
)

// FrameInterval is the display refresh period the schedulers emulate.
const FrameInterval = time.Second / 60

// Handle identifies a scheduled frame callback or timer. The zero Handle is
// never issued, so it can be used as "nothing pending".
type Handle uint64

// Scheduler is the cooperative scheduling port. Callbacks always run on the
// scheduler's own thread, strictly one at a time.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time
	// RequestFrame runs fn once at the next frame boundary. Callbacks
	// requested from inside a frame run on the following frame.
	RequestFrame(fn func(now time.Time)) Handle
	// CancelFrame drops a pending frame callback. Unknown handles are ignored.
	CancelFrame(h Handle)
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Handle
	// CancelTimer drops a pending timer. Unknown handles are ignored.
	CancelTimer(h Handle)
}

type timer struct {
	h   Handle
	due time.Time
	fn  func()
}

// queue holds the pending callbacks shared by both schedulers. It is not
// safe for concurrent use.
type queue struct {
	next     Handle
	order    []Handle
	frameFns map[Handle]func(time.Time)
	timers   map[Handle]timer
}

func newQueue() queue {
	return queue{
		frameFns: make(map[Handle]func(time.Time)),
		timers:   make(map[Handle]timer),
	}
}

func (q *queue) issue() Handle {
	q.next++
	return q.next
}

func (q *queue) requestFrame(fn func(time.Time)) Handle {
	h := q.issue()
	q.frameFns[h] = fn
	q.order = append(q.order, h)
	return h
}

func (q *queue) cancelFrame(h Handle) {
	delete(q.frameFns, h)
}

func (q *queue) afterFunc(now time.Time, d time.Duration, fn func()) Handle {
	h := q.issue()
	q.timers[h] = timer{h: h, due: now.Add(d), fn: fn}
	return h
}

func (q *queue) cancelTimer(h Handle) {
	delete(q.timers, h)
}

// runFrame runs the frame callbacks queued before this call. A callback
// cancelled by an earlier callback of the same batch does not run.
func (q *queue) runFrame(now time.Time) int {
	batch := q.order
	q.order = nil
	ran := 0
	for _, h := range batch {
		fn, ok := q.frameFns[h]
		if !ok {
			continue
		}
		delete(q.frameFns, h)
		fn(now)
		ran++
	}
	return ran
}

// runTimers fires every timer due at or before now, earliest first.
func (q *queue) runTimers(now time.Time) int {
	ran := 0
	for {
		due := q.dueTimers(now)
		if len(due) == 0 {
			return ran
		}
		t := due[0]
		delete(q.timers, t.h)
		t.fn()
		ran++
	}
}

func (q *queue) dueTimers(now time.Time) []timer {
	var due []timer
	for _, t := range q.timers {
		if !t.due.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].h < due[j].h
		}
		return due[i].due.Before(due[j].due)
	})
	return due
}

func (q *queue) nextDue() (time.Time, bool) {
	var next time.Time
	found := false
	for _, t := range q.timers {
		if !found || t.due.Before(next) {
			next = t.due
			found = true
		}
	}
	return next, found
}

func (q *queue) pendingFrames() int {
	return len(q.frameFns)
}

func (q *queue) pending() int {
	return len(q.frameFns) + len(q.timers)
}

package loop

import "time"

// Manual is a deterministic Scheduler driven by explicit calls. Time only
// moves when Frame, Advance or RunUntilIdle is called.
type Manual struct {
	q        queue
	now      time.Time
	interval time.Duration
	frames   int
}

// NewManual returns a Manual clock starting at the Unix epoch.
func NewManual() *Manual {
	return &Manual{
		q:        newQueue(),
		now:      time.Unix(0, 0).UTC(),
		interval: FrameInterval,
	}
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time { return m.now }

// RequestFrame implements Scheduler.
func (m *Manual) RequestFrame(fn func(time.Time)) Handle { return m.q.requestFrame(fn) }

// CancelFrame implements Scheduler.
func (m *Manual) CancelFrame(h Handle) { m.q.cancelFrame(h) }

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	return m.q.afterFunc(m.now, d, fn)
}

// CancelTimer implements Scheduler.
func (m *Manual) CancelTimer(h Handle) { m.q.cancelTimer(h) }

// Frame advances the clock by one frame interval, fires due timers and then
// runs the frame callbacks queued so far. It returns the number of frame
// callbacks that ran.
func (m *Manual) Frame() int {
	m.now = m.now.Add(m.interval)
	m.frames++
	m.q.runTimers(m.now)
	return m.q.runFrame(m.now)
}

// Advance steps whole frames until at least d has elapsed.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for m.now.Before(end) {
		m.Frame()
	}
}

// RunUntilIdle steps frames until nothing is pending or maxFrames frames
// have run. While only timers are pending the clock jumps straight to the
// next due time. It returns the number of frames stepped.
func (m *Manual) RunUntilIdle(maxFrames int) int {
	ran := 0
	for ran < maxFrames && m.q.pending() > 0 {
		if m.q.pendingFrames() == 0 {
			if due, ok := m.q.nextDue(); ok && due.After(m.now.Add(m.interval)) {
				m.now = due.Add(-m.interval)
			}
		}
		m.Frame()
		ran++
	}
	return ran
}

// Pending returns the number of outstanding frame callbacks and timers.
func (m *Manual) Pending() int { return m.q.pending() }

// Frames returns how many frames have been stepped.
func (m *Manual) Frames() int { return m.frames }

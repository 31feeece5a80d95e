package loop

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Loop is a real-time Scheduler that owns one goroutine. Frames fire on a
// ticker at FrameInterval. Post is the only method that may be called from
// other goroutines; everything else must run on the loop (inside Run or a
// posted function).
type Loop struct {
	q        queue
	posts    chan func()
	done     chan struct{}
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval overrides the frame interval.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// New creates a Loop. Call Run to start it.
func New(opts ...Option) *Loop {
	l := &Loop{
		q:        newQueue(),
		posts:    make(chan func(), 64),
		done:     make(chan struct{}),
		interval: FrameInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time { return time.Now() }

// RequestFrame implements Scheduler.
func (l *Loop) RequestFrame(fn func(time.Time)) Handle { return l.q.requestFrame(fn) }

// CancelFrame implements Scheduler.
func (l *Loop) CancelFrame(h Handle) { l.q.cancelFrame(h) }

// AfterFunc implements Scheduler. Timers are checked once per frame, so
// they fire with frame granularity.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	return l.q.afterFunc(time.Now(), d, fn)
}

// CancelTimer implements Scheduler.
func (l *Loop) CancelTimer(h Handle) { l.q.cancelTimer(h) }

// Post queues fn to run on the loop goroutine. It returns false if the loop
// has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.posts <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run processes posted functions, timers and frames until ctx is cancelled.
// Callbacks still pending at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			if n := l.q.pending(); n > 0 {
				l.logger.Debug("loop stopped with pending callbacks", "pending", n)
			}
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case now := <-ticker.C:
			l.q.runTimers(now)
			l.q.runFrame(now)
		}
	}
}

// Pending returns the number of outstanding frame callbacks and timers.
// Only call it on the loop goroutine.
func (l *Loop) Pending() int { return l.q.pending() }

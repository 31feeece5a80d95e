package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_PostAndFrame(t *testing.T) {
	l := New(WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	framed := make(chan struct{})
	require.True(t, l.Post(func() {
		l.RequestFrame(func(time.Time) { close(framed) })
	}))

	select {
	case <-framed:
	case <-time.After(2 * time.Second):
		t.Fatal("frame callback never ran")
	}

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Post(func() {}), "post after stop is rejected")
}

func TestLoop_Timer(t *testing.T) {
	l := New(WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan struct{})
	l.Post(func() {
		l.AfterFunc(5*time.Millisecond, func() { close(fired) })
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/matsen/relgraph/internal/geom"
	"github.com/matsen/relgraph/internal/interact"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/metrics"
	"github.com/matsen/relgraph/internal/session"
	"github.com/matsen/relgraph/internal/viz"
)

// Client message types.
const (
	MsgInput  = "input"
	MsgFilter = "filter"
	MsgResize = "resize"
	MsgLoad   = "load"
)

// Server message types.
const (
	MsgScene    = "scene"
	MsgActivate = "activate"
	MsgHover    = "hover"
	MsgState    = "state"
)

const (
	maxMessageBytes = 64 * 1024
	writeTimeout    = 5 * time.Second
	outboundBuffer  = 64

	// Wheel events beyond this rate are dropped. Pointer moves are
	// coalesced instead and every other message is always delivered.
	wheelRate  = 120
	wheelBurst = 240
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is one message from the browser.
type ClientMessage struct {
	Type      string          `json:"type"`
	Input     *interact.Input `json:"input,omitempty"`
	Cluster   string          `json:"cluster,omitempty"`
	Width     float64         `json:"width,omitempty"`
	Height    float64         `json:"height,omitempty"`
	Left      float64         `json:"left,omitempty"`
	Top       float64         `json:"top,omitempty"`
	MinWeight *float64        `json:"minWeight,omitempty"`
}

// ServerMessage is one message to the browser.
type ServerMessage struct {
	Type    string               `json:"type"`
	Session string               `json:"session,omitempty"`
	Scene   *viz.Scene           `json:"scene,omitempty"`
	NodeID  string               `json:"nodeId,omitempty"`
	Hover   *interact.HoverEvent `json:"hover,omitempty"`
	State   session.State        `json:"state,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// live is one websocket connection and the session it drives. Everything
// except the channels, ctx and batch is touched only on the loop goroutine.
type live struct {
	srv    *Server
	ws     *websocket.Conn
	lp     *loop.Loop
	sess   *session.Session
	out    chan ServerMessage
	scenes chan viz.Scene
	ctx    context.Context
	logger *slog.Logger

	// batch is owned by the reader goroutine.
	batch *moveBatch

	loadGen int
}

// moveBatch holds the latest move per pointer until the loop applies it.
// Once taken it is sealed and the reader starts a new one.
type moveBatch struct {
	mu     sync.Mutex
	sealed bool
	moves  []interact.Input
}

// add records in, reporting false if the batch was already taken.
func (b *moveBatch) add(in interact.Input) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return false
	}
	for i, m := range b.moves {
		if m.Pointer == in.Pointer && m.ID == in.ID {
			b.moves[i] = in
			return true
		}
	}
	b.moves = append(b.moves, in)
	return true
}

func (b *moveBatch) take() []interact.Input {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
	return b.moves
}

func (s *Server) handleLive(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageBytes)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	l := &live{
		srv:    s,
		ws:     ws,
		lp:     loop.New(loop.WithInterval(s.cfg.FrameInterval), loop.WithLogger(s.logger)),
		out:    make(chan ServerMessage, outboundBuffer),
		scenes: make(chan viz.Scene, 1),
		ctx:    ctx,
	}
	l.sess = session.New(s.src, l.lp,
		session.WithLogger(s.logger),
		session.WithLayoutConfig(s.cfg.Layout),
		session.WithRenderer(l.onScene),
		session.WithActivate(func(e interact.ActivateEvent) {
			l.send(ServerMessage{Type: MsgActivate, NodeID: e.NodeID})
		}),
		session.WithHover(func(e interact.HoverEvent) {
			l.send(ServerMessage{Type: MsgHover, Hover: &e})
		}),
		session.WithStateChange(func(st session.State, err error) {
			msg := ServerMessage{Type: MsgState, Session: l.sess.ID(), State: st}
			if err != nil {
				msg.Error = err.Error()
			}
			l.send(msg)
		}),
	)
	l.logger = s.logger.With("session", l.sess.ID())

	metrics.LiveSessionOpened()
	defer metrics.LiveSessionClosed()
	l.logger.Info("live session opened")

	go l.lp.Run(ctx)
	go l.writeLoop(cancel)
	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	l.startLoad(s.cfg.MinWeight)
	l.readLoop()

	l.close()
	cancel()
	<-l.lp.Done()
	l.logger.Info("live session closed")
}

// readLoop decodes client messages and posts them to the loop until the
// connection fails.
func (l *live) readLoop() {
	wheel := rate.NewLimiter(wheelRate, wheelBurst)
	for {
		var msg ClientMessage
		if err := l.ws.ReadJSON(&msg); err != nil {
			l.logger.Debug("websocket read ended", "error", err)
			return
		}
		if msg.Type == MsgInput && msg.Input != nil && msg.Input.Kind == interact.InputWheel && !wheel.Allow() {
			l.logger.Debug("dropping wheel event over rate")
			continue
		}
		if !l.dispatch(msg) {
			return
		}
	}
}

func (l *live) dispatch(msg ClientMessage) bool {
	if msg.Type == MsgInput && msg.Input != nil && msg.Input.Kind == interact.InputMove {
		return l.queueMove(*msg.Input)
	}
	// Moves queued so far were posted ahead of this message and keep their
	// order; later moves start a new batch.
	l.batch = nil

	switch msg.Type {
	case MsgInput:
		if msg.Input == nil {
			return true
		}
		in := *msg.Input
		return l.lp.Post(func() { l.sess.Input(in) })
	case MsgFilter:
		cluster := msg.Cluster
		return l.lp.Post(func() {
			if err := l.sess.SetFilter(cluster); err != nil {
				l.logger.Warn("filter failed", "cluster", cluster, "error", err)
			}
		})
	case MsgResize:
		return l.lp.Post(func() {
			if msg.Width > 0 && msg.Height > 0 {
				l.sess.SetBounds(geom.Rect{Left: msg.Left, Top: msg.Top, Width: msg.Width, Height: msg.Height})
			}
			l.sess.Resize(msg.Width, msg.Height)
		})
	case MsgLoad:
		minWeight := l.srv.cfg.MinWeight
		if msg.MinWeight != nil && *msg.MinWeight >= 0 {
			minWeight = *msg.MinWeight
		}
		return l.startLoad(minWeight)
	default:
		l.logger.Debug("ignoring client message", "type", msg.Type)
		return true
	}
}

// queueMove coalesces in into the pending batch, posting a new batch when
// the loop has already applied the previous one.
func (l *live) queueMove(in interact.Input) bool {
	if l.batch != nil && l.batch.add(in) {
		return true
	}
	b := &moveBatch{}
	b.add(in)
	l.batch = b
	return l.lp.Post(func() {
		for _, in := range b.take() {
			l.sess.Input(in)
		}
	})
}

// startLoad enters the loading state on the loop and fetches off it. Only
// the most recent load is applied.
func (l *live) startLoad(minWeight float64) bool {
	return l.lp.Post(func() {
		l.loadGen++
		gen := l.loadGen
		l.sess.MarkLoading()
		go func() {
			snap, err := l.sess.Fetch(l.ctx, minWeight)
			l.lp.Post(func() {
				if gen != l.loadGen {
					return
				}
				l.sess.Apply(snap, err)
			})
		}()
	})
}

// onScene replaces any scene the writer has not sent yet. It runs only on
// the loop goroutine, so the send after the drain never blocks.
func (l *live) onScene(scene viz.Scene) {
	select {
	case <-l.scenes:
	default:
	}
	l.scenes <- scene
}

// send queues a non-scene message, giving up when the connection closes.
func (l *live) send(msg ServerMessage) {
	select {
	case l.out <- msg:
	case <-l.ctx.Done():
	}
}

func (l *live) writeLoop(cancel context.CancelFunc) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg := <-l.out:
			if !l.write(msg, cancel) {
				return
			}
		case scene := <-l.scenes:
			if !l.write(ServerMessage{Type: MsgScene, Scene: &scene}, cancel) {
				return
			}
		}
	}
}

func (l *live) write(msg ServerMessage, cancel context.CancelFunc) bool {
	l.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := l.ws.WriteJSON(msg); err != nil {
		l.logger.Debug("websocket write failed", "error", err)
		cancel()
		return false
	}
	return true
}

// close disposes the session on the loop goroutine.
func (l *live) close() {
	done := make(chan struct{})
	if !l.lp.Post(func() {
		l.sess.Dispose()
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-l.lp.Done():
	}
}

// Package server hosts the graph over HTTP: JSON endpoints for snapshots,
// settled layouts and edge classifications, an HTML page, Prometheus
// metrics and a websocket live session.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/layout"
	"github.com/matsen/relgraph/internal/loop"
	"github.com/matsen/relgraph/internal/metrics"
	"github.com/matsen/relgraph/internal/session"
	"github.com/matsen/relgraph/internal/source"
	"github.com/matsen/relgraph/internal/viz"
)

// ErrBadParam marks an invalid query parameter.
var ErrBadParam = errors.New("invalid parameter")

// Config holds the server defaults.
type Config struct {
	// MinWeight applies when a request has no min_weight parameter.
	MinWeight float64
	Layout    layout.Config
	Title     string

	// FrameInterval paces live sessions; zero means loop.FrameInterval.
	FrameInterval time.Duration
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SnapshotResponse is returned by GET /api/snapshot.
type SnapshotResponse struct {
	State    session.State   `json:"state"`
	Nodes    []graph.Node    `json:"nodes"`
	Edges    []graph.Edge    `json:"edges"`
	Clusters []graph.Cluster `json:"clusters"`
}

// ClassifyResponse is returned by GET /api/classify.
type ClassifyResponse struct {
	State session.State          `json:"state"`
	Edges []graph.ClassifiedEdge `json:"edges"`
}

// Server serves one snapshot source.
type Server struct {
	cfg    Config
	src    source.Source
	logger *slog.Logger
	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New builds the router.
func New(cfg Config, src source.Source, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		src:    src,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Title == "" {
		s.cfg.Title = viz.DefaultOptions().Title
	}
	if s.cfg.FrameInterval <= 0 {
		s.cfg.FrameInterval = loop.FrameInterval
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/snapshot", s.handleSnapshot)
	api.GET("/layout", s.handleLayout)
	api.GET("/classify", s.handleClassify)

	r.GET("/viz", s.handleViz)
	r.GET("/ws", s.handleLive)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
		s.logger.Debug("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleSnapshot(c *gin.Context) {
	minWeight, err := s.minWeight(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	snap, err := s.src.Fetch(c.Request.Context(), minWeight)
	if err != nil {
		s.fetchFailed(c, err)
		return
	}
	resp := SnapshotResponse{State: session.StateReady}
	if snap.IsEmpty() {
		resp.State = session.StateEmpty
	} else {
		resp.Nodes, resp.Edges, resp.Clusters = snap.Nodes, snap.Edges, snap.Clusters
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLayout(c *gin.Context) {
	res, ok := s.runLayout(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleClassify(c *gin.Context) {
	minWeight, err := s.minWeight(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	snap, err := s.src.Fetch(c.Request.Context(), minWeight)
	if err != nil {
		s.fetchFailed(c, err)
		return
	}
	resp := ClassifyResponse{State: session.StateEmpty, Edges: snap.ClassifyEdges()}
	if !snap.IsEmpty() {
		resp.State = session.StateReady
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleViz(c *gin.Context) {
	res, ok := s.runLayout(c)
	if !ok {
		return
	}
	page, err := viz.GenerateHTML(&res.Scene, viz.HTMLOptions{
		Title:   s.cfg.Title,
		Offline: c.Query("offline") == "true",
	})
	if err != nil {
		s.logger.Error("rendering page failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "RENDER_FAILED"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// runLayout parses the layout parameters and runs a headless layout. It
// writes the error reply itself and reports whether the caller should go on.
func (s *Server) runLayout(c *gin.Context) (*session.Result, bool) {
	minWeight, err := s.minWeight(c)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	cfg := s.cfg.Layout
	if cfg.Width, err = positiveParam(c, "width", cfg.Width); err != nil {
		badRequest(c, err)
		return nil, false
	}
	if cfg.Height, err = positiveParam(c, "height", cfg.Height); err != nil {
		badRequest(c, err)
		return nil, false
	}

	res, err := session.RunHeadless(c.Request.Context(), s.src, session.HeadlessOptions{
		MinWeight: minWeight,
		Cluster:   c.Query("cluster"),
		Layout:    cfg,
		Logger:    s.logger,
	})
	if err != nil {
		s.fetchFailed(c, err)
		return nil, false
	}
	return res, true
}

func (s *Server) minWeight(c *gin.Context) (float64, error) {
	raw := c.Query("min_weight")
	if raw == "" {
		return s.cfg.MinWeight, nil
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("%w: min_weight must be a non-negative number, got %q", ErrBadParam, raw)
	}
	return w, nil
}

func positiveParam(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrBadParam, name, raw)
	}
	return v, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_PARAM"})
}

func (s *Server) fetchFailed(c *gin.Context, err error) {
	s.logger.Warn("snapshot fetch failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "FETCH_FAILED"})
}

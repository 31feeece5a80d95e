// Package metrics exposes the Prometheus instruments shared by the layout
// session, the snapshot sources and the host server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// fetchTotal counts snapshot fetches by source and result
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_fetch_total",
		Help: "Total snapshot fetches by source and result",
	}, []string{"source", "result"})

	// fetchDuration tracks snapshot fetch latency
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relgraph_fetch_duration_seconds",
		Help:    "Snapshot fetch duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"source"})

	// layoutTicks counts simulation iterations
	layoutTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relgraph_layout_ticks_total",
		Help: "Total layout simulation ticks",
	})

	// layoutSettles counts hard stops by reason
	layoutSettles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_layout_settles_total",
		Help: "Total layout settles by reason",
	}, []string{"reason"})

	// settleTicks tracks how many ticks a layout ran before settling
	settleTicks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relgraph_layout_settle_ticks",
		Help:    "Ticks run before the layout settled",
		Buckets: []float64{10, 25, 50, 100, 150, 200, 300, 500},
	})

	// gestures counts completed pointer gestures by outcome
	gestures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_gestures_total",
		Help: "Total pointer gestures by outcome",
	}, []string{"outcome"})

	// sessionStates counts session state transitions
	sessionStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relgraph_session_states_total",
		Help: "Total session state transitions by target state",
	}, []string{"state"})

	// liveSessions tracks open websocket sessions
	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relgraph_live_sessions",
		Help: "Currently open live sessions",
	})
)

// ObserveFetch records one snapshot fetch.
func ObserveFetch(source string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchTotal.WithLabelValues(source, result).Inc()
	fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// LayoutTick records one simulation iteration.
func LayoutTick() {
	layoutTicks.Inc()
}

// LayoutSettled records a hard stop.
func LayoutSettled(reason string, ticks int) {
	layoutSettles.WithLabelValues(reason).Inc()
	settleTicks.Observe(float64(ticks))
}

// Gesture records a completed gesture.
func Gesture(outcome string) {
	gestures.WithLabelValues(outcome).Inc()
}

// SessionState records a session entering state.
func SessionState(state string) {
	sessionStates.WithLabelValues(state).Inc()
}

// LiveSessionOpened and LiveSessionClosed track websocket sessions.
func LiveSessionOpened() { liveSessions.Inc() }

// LiveSessionClosed marks a websocket session as closed.
func LiveSessionClosed() { liveSessions.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/matsen/relgraph/internal/graph"
	"github.com/matsen/relgraph/internal/metrics"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default number of requests per second.
	DefaultRateLimit = 5.0

	// maxBodyBytes caps the size of a snapshot response.
	maxBodyBytes = 64 << 20
)

var tracer = otel.Tracer("relgraph.source")

// Client is a rate-limited HTTP client for the graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the bearer token for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout bounds each fetch, including time spent waiting on the
// rate limiter.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit sets the allowed requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new graph API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "api_error",
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(msg)),
		}
	}
	return nil
}

// Fetch requests GET {base}/graph?min_weight=<w> and validates the result.
func (c *Client) Fetch(ctx context.Context, minWeight float64) (snap *graph.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "source.Client.Fetch", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.Float64("min_weight", minWeight))
	start := time.Now()
	defer func() {
		metrics.ObserveFetch("api", time.Since(start), err)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("nodes", len(snap.Nodes)),
				attribute.Int("edges", len(snap.Edges)),
			)
		}
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapContextErr(ctx, fmt.Errorf("rate limiter: %w", err))
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u = u.JoinPath("graph")
	q := u.Query()
	q.Set("min_weight", strconv.FormatFloat(minWeight, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("fetching snapshot", "url", u.String(), "min_weight", minWeight)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if mapped := mapContextErr(ctx, err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	snap = &graph.Snapshot{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(snap); err != nil {
		if mapped := mapContextErr(ctx, err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	c.logger.Debug("fetched snapshot",
		"nodes", len(snap.Nodes),
		"edges", len(snap.Edges),
		"clusters", len(snap.Clusters),
		"elapsed", time.Since(start))
	return snap, nil
}

// mapContextErr turns a deadline into ErrTimeout. Other errors are
// returned unchanged.
func mapContextErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// Package downstream provides the gateway's resilient client for calls
// to the backend services. Every call gets a per-call timeout, transient
// failures are retried with exponential backoff when the operation is
// idempotent, and each target is guarded by a circuit breaker. Failures
// surface as a uniform Fault signal.
package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/pkg/breaker"
)

// Prometheus metrics for downstream calls.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_downstream_requests_total",
		Help: "Total downstream requests by target and status",
	}, []string{"target", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_downstream_request_duration_seconds",
		Help:    "Downstream call duration in seconds by target",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
	}, []string{"target"})

	faultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_downstream_faults_total",
		Help: "Total downstream faults by target and class",
	}, []string{"target", "class"})
)

// Request describes one downstream call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// Idempotent enables automatic retry of transient failures.
	// Creates must leave this false: retrying a create whose response
	// was lost risks duplicate side effects downstream.
	Idempotent bool
}

// Response is the successful outcome of a downstream call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode downstream response: %w", err)
	}
	return nil
}

// Config holds the client configuration for one target.
type Config struct {
	// Target is the backend name used in logs, metrics and faults
	// ("auth", "task", "notification").
	Target string

	// BaseURL is the backend's root URL.
	BaseURL string

	// Timeout applies per call attempt.
	Timeout time.Duration

	// Retry controls the backoff schedule for idempotent calls.
	Retry RetryPolicy

	// Breaker controls the target's circuit breaker thresholds.
	Breaker breaker.Config
}

// DefaultConfig returns a safe default configuration for a target.
func DefaultConfig(target, baseURL string) Config {
	return Config{
		Target:  target,
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
		Retry:   DefaultRetryPolicy(),
		Breaker: breaker.DefaultConfig(),
	}
}

// Client is the resilient downstream client for one named target.
// All requests to the target share its breaker state.
type Client struct {
	httpClient *http.Client
	config     Config
	breaker    *breaker.Breaker
	logger     zerolog.Logger
}

// New creates a client for the configured target.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("target name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0 (got %d)", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseBackoff <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	componentLogger := logger.With().Str("component", "downstream").Str("target", cfg.Target).Logger()

	return &Client{
		// The HTTP client carries no timeout of its own; each attempt
		// gets a context deadline so retries see a fresh budget.
		httpClient: &http.Client{},
		config:     cfg,
		breaker:    breaker.New(cfg.Target, cfg.Breaker, componentLogger),
		logger:     componentLogger,
	}, nil
}

// Breaker exposes the target's breaker state (for health reporting and tests).
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// Call performs the request against the target. It returns either a
// response with a 2xx status or an error carrying a *Fault; retries and
// circuit-breaking happen entirely inside, so callers only ever see the
// terminal outcome.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(c.config.Target).Observe(time.Since(start).Seconds())
	}()

	maxAttempts := 1
	if req.Idempotent {
		maxAttempts = c.config.Retry.MaxRetries + 1
	}

	var resp *Response
	err := retryWithBackoff(ctx, c.config.Target, c.config.Retry, maxAttempts, c.logger, func() error {
		r, fault := c.attempt(ctx, req)
		if fault != nil {
			faultsTotal.WithLabelValues(c.config.Target, string(fault.Class)).Inc()
			return fault
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// attempt executes one call through the breaker.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, *Fault) {
	if !c.breaker.Allow() {
		c.logger.Warn().Str("path", req.Path).Msg("Call rejected: circuit open")
		return nil, &Fault{
			Target:  c.config.Target,
			Class:   ClassCircuitOpen,
			Message: "circuit open",
		}
	}

	httpReq, fault := c.buildRequest(ctx, req)
	if fault != nil {
		c.breaker.Release()
		return nil, fault
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	httpReq = httpReq.WithContext(callCtx)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		fault := c.classifyTransportError(req.Path, err)
		// Only failures that implicate the target count against the
		// breaker; a caller-side cancellation says nothing about it.
		switch fault.Class {
		case ClassTransient, ClassTimeout:
			c.breaker.RecordFailure()
		default:
			c.breaker.Release()
		}
		return nil, fault
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, &Fault{
			Target:  c.config.Target,
			Class:   ClassTransient,
			Message: "read response body",
			Err:     err,
		}
	}

	requestsTotal.WithLabelValues(c.config.Target, fmt.Sprintf("%d", httpResp.StatusCode)).Inc()

	switch {
	case httpResp.StatusCode < 400:
		c.breaker.RecordSuccess()
		return &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header.Clone(),
			Body:       body,
		}, nil

	case httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500:
		c.breaker.RecordFailure()
		c.logger.Warn().
			Str("path", req.Path).
			Int("status", httpResp.StatusCode).
			Msg("Downstream transient error")
		return nil, &Fault{
			Target:     c.config.Target,
			Class:      ClassTransient,
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}

	default:
		// 4xx means the target is alive and answering; it does not
		// count against the breaker.
		c.breaker.RecordSuccess()
		return nil, &Fault{
			Target:     c.config.Target,
			Class:      ClassClient,
			StatusCode: httpResp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, *Fault) {
	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Fault{
				Target:  c.config.Target,
				Class:   ClassUnclassified,
				Message: "encode request body",
				Err:     err,
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	fullURL := c.config.BaseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, &Fault{
			Target:  c.config.Target,
			Class:   ClassUnclassified,
			Message: "build request",
			Err:     err,
		}
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// classifyTransportError maps a transport-level error to a fault class.
func (c *Client) classifyTransportError(path string, err error) *Fault {
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Warn().Str("path", path).Msg("Downstream call timed out")
		return &Fault{
			Target:  c.config.Target,
			Class:   ClassTimeout,
			Message: "downstream call timed out",
			Err:     err,
		}

	case errors.Is(err, context.Canceled):
		return &Fault{
			Target:  c.config.Target,
			Class:   ClassUnclassified,
			Message: "call cancelled",
			Err:     err,
		}

	default:
		c.logger.Warn().Str("path", path).Err(err).Msg("Downstream network error")
		return &Fault{
			Target:  c.config.Target,
			Class:   ClassTransient,
			Message: "network error",
			Err:     err,
		}
	}
}

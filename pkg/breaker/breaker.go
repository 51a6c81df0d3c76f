// Package breaker implements a per-target circuit breaker for downstream
// calls. It stops calling a failing target for a cool-down period after
// repeated failures, sheds load, and fails fast while the target recovers.
package breaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for circuit breaker state.
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_breaker_state",
		Help: "Current breaker state by target (0=closed, 1=open, 2=half-open)",
	}, []string{"target"})

	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_breaker_transitions_total",
		Help: "Total breaker state transitions by target and new state",
	}, []string{"target", "state"})

	breakerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_breaker_rejections_total",
		Help: "Total calls rejected while the breaker was open",
	}, []string{"target"})
)

// State represents the breaker's position in its lifecycle.
type State int

const (
	// StateClosed allows all calls; failures are counted.
	StateClosed State = iota

	// StateOpen rejects all calls until the cool-down elapses.
	StateOpen

	// StateHalfOpen admits exactly one probe call whose outcome decides
	// the next state.
	StateHalfOpen
)

// String returns the state name for logging and metrics.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive qualifying failures
	// that trips the breaker from Closed to Open.
	FailureThreshold int

	// CoolDown is how long the breaker stays Open before admitting a probe.
	CoolDown time.Duration
}

// DefaultConfig returns the default breaker thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	}
}

// Breaker is the synchronized state owner for one downstream target.
// All requests to the target share the same instance; transitions are
// driven exclusively by call outcomes reported through RecordSuccess
// and RecordFailure.
type Breaker struct {
	mu                  sync.Mutex
	target              string
	config              Config
	state               State
	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool
	logger              zerolog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// New creates a breaker for the named target, starting Closed.
func New(target string, cfg Config, logger zerolog.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = DefaultConfig().CoolDown
	}

	breakerState.WithLabelValues(target).Set(float64(StateClosed))

	return &Breaker{
		target: target,
		config: cfg,
		state:  StateClosed,
		logger: logger.With().Str("target", target).Logger(),
		now:    time.Now,
	}
}

// Allow reports whether a call to the target may proceed.
// In Open state it returns false until the cool-down elapses, at which
// point the breaker moves to HalfOpen and admits exactly one probe.
// Subsequent calls are rejected until the probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.CoolDown {
			breakerRejectionsTotal.WithLabelValues(b.target).Inc()
			return false
		}
		b.transition(StateHalfOpen)
		b.probeInFlight = true
		return true

	case StateHalfOpen:
		if b.probeInFlight {
			breakerRejectionsTotal.WithLabelValues(b.target).Inc()
			return false
		}
		b.probeInFlight = true
		return true
	}

	return false
}

// RecordSuccess reports a successful call outcome.
// A successful HalfOpen probe closes the breaker and resets the
// failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0

	if b.state == StateHalfOpen {
		b.probeInFlight = false
		b.transition(StateClosed)
		b.logger.Info().Msg("Breaker closed after successful probe")
	}
}

// RecordFailure reports a qualifying failure (timeout, network error,
// HTTP 5xx or 429). A failed HalfOpen probe reopens the breaker; in
// Closed state the breaker trips once consecutive failures reach the
// threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probeInFlight = false
		b.openedAt = b.now()
		b.transition(StateOpen)
		b.logger.Warn().Msg("Breaker reopened after failed probe")

	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
			b.logger.Warn().
				Int("consecutive_failures", b.consecutiveFailures).
				Dur("cool_down", b.config.CoolDown).
				Msg("Breaker opened")
		}
	}
}

// Release reports a call that ended without a verdict on the target's
// health, such as a caller-cancelled request. It frees a HalfOpen probe
// slot so the next call can probe again; in other states it is a no-op.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probeInFlight = false
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with the mutex held.
func (b *Breaker) transition(next State) {
	b.state = next
	breakerState.WithLabelValues(b.target).Set(float64(next))
	breakerTransitionsTotal.WithLabelValues(b.target, next.String()).Inc()
}

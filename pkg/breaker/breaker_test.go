package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestBreaker(cfg Config) *Breaker {
	return New("task", cfg, zerolog.Nop())
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := newTestBreaker(DefaultConfig())

	if b.State() != StateClosed {
		t.Errorf("New breaker state = %v, want closed", b.State())
	}
	if !b.Allow() {
		t.Error("Closed breaker should allow calls")
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 3, CoolDown: 30 * time.Second})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if b.State() != StateClosed {
			t.Fatalf("Breaker opened after %d failures, threshold is 3", i+1)
		}
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("Breaker state = %v after threshold failures, want open", b.State())
	}
	if b.Allow() {
		t.Error("Open breaker must fail fast without a network call")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 3, CoolDown: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Error("Non-consecutive failures must not trip the breaker")
	}
}

func TestBreaker_HalfOpenAfterCoolDown(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 1, CoolDown: 30 * time.Second})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("Breaker should be open")
	}
	if b.Allow() {
		t.Fatal("Call allowed before cool-down elapsed")
	}

	// Advance past the cool-down.
	now = now.Add(31 * time.Second)

	if !b.Allow() {
		t.Fatal("Probe should be admitted after cool-down")
	}
	if b.State() != StateHalfOpen {
		t.Errorf("State = %v after cool-down, want half-open", b.State())
	}
}

func TestBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 1, CoolDown: 10 * time.Millisecond})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("First probe should be admitted")
	}
	if b.Allow() {
		t.Error("Second call admitted while probe still in flight")
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 1, CoolDown: 10 * time.Millisecond})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("Probe should be admitted")
	}
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Errorf("State = %v after successful probe, want closed", b.State())
	}

	// Failure counter must be reset: a single new failure may not trip
	// a threshold-2 breaker.
	b2 := newTestBreaker(Config{FailureThreshold: 2, CoolDown: 10 * time.Millisecond})
	b2.now = func() time.Time { return now }
	b2.RecordFailure()
	b2.RecordFailure()
	now = now.Add(20 * time.Millisecond)
	b2.Allow()
	b2.RecordSuccess()
	b2.RecordFailure()
	if b2.State() != StateClosed {
		t.Error("Failure counter not reset after successful probe")
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 1, CoolDown: 10 * time.Millisecond})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("Probe should be admitted")
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Errorf("State = %v after failed probe, want open", b.State())
	}

	// The cool-down restarts from the failed probe.
	if b.Allow() {
		t.Error("Call allowed immediately after reopening")
	}
}

func TestBreaker_ReleaseFreesProbeSlot(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 1, CoolDown: 10 * time.Millisecond})

	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("Probe should be admitted")
	}

	// The probe ends without an outcome (for example, the caller hung
	// up). The slot must be freed, not left occupied forever.
	b.Release()

	if b.State() != StateHalfOpen {
		t.Errorf("State = %v after released probe, want half-open", b.State())
	}
	if !b.Allow() {
		t.Error("Next call should be admitted as a fresh probe")
	}
}

func TestBreaker_ReleaseWhileClosedKeepsFailureCount(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 2, CoolDown: time.Minute})

	b.RecordFailure()
	b.Release()
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Error("Release must not reset the consecutive failure count")
	}
}

func TestBreaker_ConcurrentOutcomes(t *testing.T) {
	b := newTestBreaker(Config{FailureThreshold: 5, CoolDown: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if b.Allow() {
				b.RecordFailure()
			}
		}()
		go func() {
			defer wg.Done()
			_ = b.State()
		}()
	}
	wg.Wait()

	// 20 consecutive failures far exceed the threshold.
	if b.State() != StateOpen {
		t.Errorf("State = %v after concurrent failures, want open", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func countByStatus(outcomes []Delivery, status DeliveryStatus) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func TestDispatcher_DeliversToAllChannels(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	user := uuid.New()
	c1 := newFakeChannel("c1")
	c2 := newFakeChannel("c2")
	registry.Register(user, c1)
	registry.Register(user, c2)

	event := Event{NotificationID: uuid.New(), Message: "deploy finished"}
	outcomes := dispatcher.Dispatch(context.Background(), []uuid.UUID{user}, event)

	if got := countByStatus(outcomes, StatusDelivered); got != 2 {
		t.Errorf("Delivered to %d channels, want 2", got)
	}
	for _, ch := range []*fakeChannel{c1, c2} {
		received := ch.received()
		if len(received) != 1 {
			t.Fatalf("Channel %s received %d events, want 1", ch.ID(), len(received))
		}
		if received[0] != event {
			t.Errorf("Channel %s received mutated event: %+v", ch.ID(), received[0])
		}
	}
}

func TestDispatcher_PartiallyConnectedRecipients(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	connected := uuid.New()
	offline1 := uuid.New()
	offline2 := uuid.New()
	ch := newFakeChannel("c1")
	registry.Register(connected, ch)

	outcomes := dispatcher.Dispatch(context.Background(),
		[]uuid.UUID{connected, offline1, offline2},
		Event{NotificationID: uuid.New(), Message: "hello"})

	if got := countByStatus(outcomes, StatusDelivered); got != 1 {
		t.Errorf("Delivered %d, want 1", got)
	}
	// Offline recipients are skipped, never reported as failures.
	if got := countByStatus(outcomes, StatusNoChannel); got != 2 {
		t.Errorf("NoChannel outcomes = %d, want 2", got)
	}
	if got := countByStatus(outcomes, StatusFailed); got != 0 {
		t.Errorf("Failed outcomes = %d, want 0", got)
	}
}

func TestDispatcher_DeduplicatesRecipients(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	user := uuid.New()
	ch := newFakeChannel("c1")
	registry.Register(user, ch)

	dispatcher.Dispatch(context.Background(),
		[]uuid.UUID{user, user, user},
		Event{NotificationID: uuid.New(), Message: "once"})

	if got := len(ch.received()); got != 1 {
		t.Errorf("Channel received %d events for a triplicated recipient, want 1", got)
	}
}

func TestDispatcher_ChannelFaultIsolated(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	user := uuid.New()
	broken := newFakeChannel("broken")
	broken.fail = errors.New("connection reset")
	healthy := newFakeChannel("healthy")
	registry.Register(user, broken)
	registry.Register(user, healthy)

	other := uuid.New()
	otherCh := newFakeChannel("other")
	registry.Register(other, otherCh)

	outcomes := dispatcher.Dispatch(context.Background(),
		[]uuid.UUID{user, other},
		Event{NotificationID: uuid.New(), Message: "resilient"})

	if got := countByStatus(outcomes, StatusFailed); got != 1 {
		t.Errorf("Failed outcomes = %d, want 1", got)
	}
	if got := countByStatus(outcomes, StatusDelivered); got != 2 {
		t.Errorf("Delivered outcomes = %d, want 2 (failure must not block others)", got)
	}
	if len(healthy.received()) != 1 || len(otherCh.received()) != 1 {
		t.Error("Healthy channels must receive the event despite the broken one")
	}
}

func TestDispatcher_NoRecipients(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	outcomes := dispatcher.Dispatch(context.Background(), nil,
		Event{NotificationID: uuid.New(), Message: "void"})

	if len(outcomes) != 0 {
		t.Errorf("Outcomes = %v, want none", outcomes)
	}
}

// slowChannel blocks in Send until released.
type slowChannel struct {
	id      string
	release chan struct{}
}

func (c *slowChannel) ID() string { return c.id }

func (c *slowChannel) Send(ctx context.Context, event Event) error {
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatcher_SendsConcurrently(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, zerolog.Nop())

	// Two channels that both block until released. A sequential
	// dispatcher would deadlock below; a concurrent one finishes once
	// the single release covers all in-flight sends.
	release := make(chan struct{})
	u1, u2 := uuid.New(), uuid.New()
	registry.Register(u1, &slowChannel{id: "s1", release: release})
	registry.Register(u2, &slowChannel{id: "s2", release: release})

	done := make(chan []Delivery, 1)
	go func() {
		done <- dispatcher.Dispatch(context.Background(), []uuid.UUID{u1, u2},
			Event{NotificationID: uuid.New(), Message: "scatter"})
	}()

	close(release)

	select {
	case outcomes := <-done:
		if got := countByStatus(outcomes, StatusDelivered); got != 2 {
			t.Errorf("Delivered = %d, want 2", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch did not complete; sends are not concurrent")
	}
}

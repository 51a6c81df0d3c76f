package push

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for fan-out delivery.
var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_push_deliveries_total",
		Help: "Total per-channel delivery outcomes by status",
	}, []string{"status"}) // "delivered", "failed", "no_channel"

	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_push_dispatch_duration_seconds",
		Help:    "Duration of a full fan-out dispatch",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// DeliveryStatus classifies one per-channel outcome.
type DeliveryStatus string

const (
	// StatusDelivered means the channel accepted the event.
	StatusDelivered DeliveryStatus = "delivered"

	// StatusFailed means the channel's send returned an error.
	StatusFailed DeliveryStatus = "failed"

	// StatusNoChannel means the recipient had no live channel; this is
	// a skip, not an error.
	StatusNoChannel DeliveryStatus = "no_channel"
)

// Delivery is the outcome of delivering one event to one recipient
// channel (or the lack of one).
type Delivery struct {
	UserID    uuid.UUID
	ChannelID string
	Status    DeliveryStatus
	Err       error
}

// Dispatcher fans events out to the live channels of their recipients.
type Dispatcher struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch delivers event to every live channel of every unique
// recipient concurrently and returns when all outcomes are known.
// Recipients are deduplicated first, so a user listed twice still
// receives the event once per connection. Each channel gets the same
// event value built once by the caller; a send failure on one channel
// never affects delivery to the others. Callers that do not need the
// outcomes may run Dispatch on its own goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []uuid.UUID, event Event) []Delivery {
	start := time.Now()
	defer func() {
		dispatchDuration.Observe(time.Since(start).Seconds())
	}()

	seen := make(map[uuid.UUID]struct{}, len(recipients))
	unique := make([]uuid.UUID, 0, len(recipients))
	for _, id := range recipients {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var (
		mu        sync.Mutex
		outcomes  []Delivery
		wg        sync.WaitGroup
		delivered int
	)

	record := func(del Delivery) {
		mu.Lock()
		outcomes = append(outcomes, del)
		if del.Status == StatusDelivered {
			delivered++
		}
		mu.Unlock()
		deliveriesTotal.WithLabelValues(string(del.Status)).Inc()
	}

	for _, userID := range unique {
		channels := d.registry.Channels(userID)
		if len(channels) == 0 {
			record(Delivery{UserID: userID, Status: StatusNoChannel})
			continue
		}

		for _, ch := range channels {
			wg.Add(1)
			go func(userID uuid.UUID, ch Channel) {
				defer wg.Done()

				if err := ch.Send(ctx, event); err != nil {
					d.logger.Warn().
						Err(err).
						Str("user_id", userID.String()).
						Str("channel_id", ch.ID()).
						Msg("Push delivery failed")
					record(Delivery{UserID: userID, ChannelID: ch.ID(), Status: StatusFailed, Err: err})
					return
				}
				record(Delivery{UserID: userID, ChannelID: ch.ID(), Status: StatusDelivered})
			}(userID, ch)
		}
	}

	wg.Wait()

	d.logger.Debug().
		Str("notification_id", event.NotificationID.String()).
		Int("recipients", len(unique)).
		Int("delivered", delivered).
		Dur("duration", time.Since(start)).
		Msg("Dispatch complete")

	return outcomes
}

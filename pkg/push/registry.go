package push

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for connection tracking.
var (
	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_push_connections",
		Help: "Current number of live push channels",
	})

	connectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_push_users",
		Help: "Current number of users with at least one live channel",
	})
)

// Event is the payload delivered to push channels when a notification
// is created.
type Event struct {
	NotificationID uuid.UUID `json:"notificationId"`
	Message        string    `json:"message"`
}

// Channel is one live push connection belonging to a user.
type Channel interface {
	// ID identifies the channel within its user's group.
	ID() string

	// Send delivers one event. Implementations must be safe for
	// concurrent use and should fail rather than block indefinitely.
	Send(ctx context.Context, event Event) error
}

// Registry maps user identities to their live push channels.
// It holds no history: a channel exists exactly while its connection
// is open.
type Registry struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[string]Channel
	total int
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[uuid.UUID]map[string]Channel),
	}
}

// Register adds a channel to the user's group. Registering the same
// channel id again replaces the previous channel for that id.
func (r *Registry) Register(userID uuid.UUID, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.users[userID]
	if !ok {
		group = make(map[string]Channel)
		r.users[userID] = group
		connectedUsers.Set(float64(len(r.users)))
	}
	if _, exists := group[ch.ID()]; !exists {
		r.total++
		liveConnections.Set(float64(r.total))
	}
	group[ch.ID()] = ch
}

// Unregister removes a channel from the user's group. Unregistering an
// unknown channel is a no-op. A user whose last channel leaves is
// removed entirely so empty groups never accumulate.
func (r *Registry) Unregister(userID uuid.UUID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.users[userID]
	if !ok {
		return
	}
	if _, exists := group[channelID]; !exists {
		return
	}

	delete(group, channelID)
	r.total--
	liveConnections.Set(float64(r.total))

	if len(group) == 0 {
		delete(r.users, userID)
		connectedUsers.Set(float64(len(r.users)))
	}
}

// Channels returns a snapshot of the user's live channels.
// The returned slice is safe to use after concurrent registry changes.
func (r *Registry) Channels(userID uuid.UUID) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.users[userID]
	if !ok {
		return nil
	}

	channels := make([]Channel, 0, len(group))
	for _, ch := range group {
		channels = append(channels, ch)
	}
	return channels
}

// UserCount returns the number of users with at least one live channel.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

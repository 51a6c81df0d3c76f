package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/pkg/cache"
	"github.com/taskfabric/gateway/pkg/downstream"
	"github.com/taskfabric/gateway/pkg/push"
)

// dispatchTimeout bounds detached fan-out after the HTTP response has
// been written.
const dispatchTimeout = 10 * time.Second

// NotificationHandler proxies notification reads and writes, keeps the
// per-user notification cache coherent, and fans created notifications
// out to the recipients' live push channels.
type NotificationHandler struct {
	notifications *downstream.NotificationService
	store         *cache.Store
	dispatcher    *push.Dispatcher
	listTTL       time.Duration

	// awaitDispatch makes Create block until fan-out completes
	// instead of detaching it.
	awaitDispatch bool

	logger zerolog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(
	notifications *downstream.NotificationService,
	store *cache.Store,
	dispatcher *push.Dispatcher,
	listTTL time.Duration,
	awaitDispatch bool,
	logger zerolog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		store:         store,
		dispatcher:    dispatcher,
		listTTL:       listTTL,
		awaitDispatch: awaitDispatch,
		logger:        logger.With().Str("component", "notification_handler").Logger(),
	}
}

// List handles GET /api/notifications/{userId}.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userId")
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))

	key := cache.NotificationsKey(userID, unreadOnly)
	if cached, err := h.store.Get(key); err == nil {
		RespondWithRaw(w, http.StatusOK, cached)
		return
	}

	resp, err := h.notifications.ListForUser(r.Context(), userID, unreadOnly)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.store.Set(key, resp, h.listTTL)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Create handles POST /api/notifications. After a successful downstream
// write the recipients' cached notification lists are invalidated and
// the event goes out to their live push channels. Fan-out is best
// effort: its outcome never changes the HTTP response.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req downstream.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		RespondWithError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.RecipientIDs) == 0 {
		RespondWithError(w, http.StatusBadRequest, "recipientIds is required")
		return
	}

	created, resp, err := h.notifications.Create(r.Context(), req)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	for _, recipient := range req.RecipientIDs {
		h.invalidateUser(recipient)
	}

	event := push.Event{
		NotificationID: created.CreatedNotificationID,
		Message:        req.Message,
	}
	if h.awaitDispatch {
		h.dispatcher.Dispatch(r.Context(), req.RecipientIDs, event)
	} else {
		recipients := make([]uuid.UUID, len(req.RecipientIDs))
		copy(recipients, req.RecipientIDs)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			h.dispatcher.Dispatch(ctx, recipients, event)
		}()
	}

	RespondWithRaw(w, resp.StatusCode, resp.Body)
}

// MarkRead handles PUT /api/notifications/{id}/mark-as-read. The
// recipient is the authenticated caller.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	notificationID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, userID); err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidateUser drops both unread-state variants of a user's cached
// notification list.
func (h *NotificationHandler) invalidateUser(userID uuid.UUID) {
	h.store.Invalidate(cache.NotificationsKey(userID, true))
	h.store.Invalidate(cache.NotificationsKey(userID, false))
}

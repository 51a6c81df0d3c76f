package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// userIDContextKey carries the authenticated user's id through the
// request context.
const userIDContextKey contextKey = "userID"

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(userIDContextKey).(uuid.UUID)
	return userID, ok
}

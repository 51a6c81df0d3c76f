package downstream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire types shared with the backend services. Reads that only proxy a
// payload stay opaque ([]byte); these types exist where the gateway has
// to look inside a request or response.

// TaskFilter describes the filter portion of a task list query.
type TaskFilter struct {
	Title       string     `json:"title,omitempty"`
	AssignedTo  *uuid.UUID `json:"assignedUserId,omitempty"`
	CreatedFrom *int64     `json:"createdFromTimestamp,omitempty"`
	CreatedTo   *int64     `json:"createdToTimestamp,omitempty"`
	CreatedBy   *uuid.UUID `json:"createdBy,omitempty"`
	OnlyActive  *bool      `json:"onlyActive,omitempty"`
}

// ParseTaskFilter extracts a filter from request query parameters.
func ParseTaskFilter(q url.Values) TaskFilter {
	f := TaskFilter{Title: q.Get("title")}

	if id, err := uuid.Parse(q.Get("assignedUserId")); err == nil {
		f.AssignedTo = &id
	}
	if id, err := uuid.Parse(q.Get("createdBy")); err == nil {
		f.CreatedBy = &id
	}
	if ts, err := strconv.ParseInt(q.Get("createdFromTimestamp"), 10, 64); err == nil {
		f.CreatedFrom = &ts
	}
	if ts, err := strconv.ParseInt(q.Get("createdToTimestamp"), 10, 64); err == nil {
		f.CreatedTo = &ts
	}
	if b, err := strconv.ParseBool(q.Get("onlyActive")); err == nil {
		f.OnlyActive = &b
	}

	return f
}

// Key returns a canonical string for cache key hashing. Only set fields
// participate, so equivalent filters produce identical keys.
func (f TaskFilter) Key() string {
	var b strings.Builder

	if f.Title != "" {
		b.WriteString(f.Title + "_")
	}
	if f.AssignedTo != nil {
		b.WriteString(f.AssignedTo.String() + "_")
	}
	if f.CreatedFrom != nil {
		fmt.Fprintf(&b, "%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		fmt.Fprintf(&b, "%d_", *f.CreatedTo)
	}
	if f.CreatedBy != nil {
		b.WriteString(f.CreatedBy.String() + "_")
	}
	if f.OnlyActive != nil && *f.OnlyActive {
		b.WriteString("active")
	}

	return b.String()
}

// Values encodes the filter as downstream query parameters.
func (f TaskFilter) Values() url.Values {
	q := url.Values{}

	if f.Title != "" {
		q.Set("title", f.Title)
	}
	if f.AssignedTo != nil {
		q.Set("assignedUserId", f.AssignedTo.String())
	}
	if f.CreatedFrom != nil {
		q.Set("createdFromTimestamp", strconv.FormatInt(*f.CreatedFrom, 10))
	}
	if f.CreatedTo != nil {
		q.Set("createdToTimestamp", strconv.FormatInt(*f.CreatedTo, 10))
	}
	if f.CreatedBy != nil {
		q.Set("createdBy", f.CreatedBy.String())
	}
	if f.OnlyActive != nil {
		q.Set("onlyActive", strconv.FormatBool(*f.OnlyActive))
	}

	return q
}

// TaskResponse is a single task as returned by the task service.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	IsActive    bool       `json:"isActive"`
	AssignedTo  *uuid.UUID `json:"assignedUserId,omitempty"`
}

// UpdateTaskRequest is the task service's update payload.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssignedTo  *uuid.UUID `json:"assignedUserId,omitempty"`
}

// UserResponse is a user profile as returned by the auth service.
type UserResponse struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
}

// CreateNotificationRequest is the notification creation payload.
type CreateNotificationRequest struct {
	Message      string      `json:"message"`
	RecipientIDs []uuid.UUID `json:"recipientIds"`
}

// CreateNotificationResponse carries the id of a created notification.
type CreateNotificationResponse struct {
	CreatedNotificationID uuid.UUID `json:"createdNotificationId"`
}

package cache

import (
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

// Key builders for the gateway's cache entries. Point keys address a
// single entity; list keys additionally embed the collection generation
// read at lookup time so that a generation bump orphans them.

// TaskKey returns the point key for a single task.
func TaskKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task_%s", taskID)
}

// TaskHistoryKey returns the point key for a task's change history.
func TaskHistoryKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task_history_%s", taskID)
}

// TaskListKey returns the versioned key for a filtered, paged task query.
// filterKey is any canonical string representation of the filter; it is
// hashed so arbitrary filter combinations produce bounded-length keys.
func TaskListKey(filterKey string, page, pageSize int, generation int64) string {
	h := fnv.New64a()
	h.Write([]byte(filterKey))
	return fmt.Sprintf("tasks_%x_p%d_s%d_v%d", h.Sum64(), page, pageSize, generation)
}

// NotificationsKey returns the key for a user's notification list.
// The unreadOnly flag is part of the key, so each user has exactly two
// notification entries to invalidate on state changes.
func NotificationsKey(userID uuid.UUID, unreadOnly bool) string {
	return fmt.Sprintf("notifications_%s_%t", userID, unreadOnly)
}

// UserKey returns the point key for a user profile.
func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf("auth_user_%s", userID)
}

package api

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// AssignTaskRequest is the payload for the task assignment endpoint.
type AssignTaskRequest struct {
	AssignedUserID uuid.UUID `json:"assignedUserId"`
}

// parsePaging extracts page and pageSize query parameters, falling back
// to defaults for absent or malformed values.
func parsePaging(q url.Values) (page, pageSize int) {
	page = defaultPage
	pageSize = defaultPageSize

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v >= 1 {
		pageSize = v
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

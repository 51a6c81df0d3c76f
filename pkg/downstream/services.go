package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// Typed wrappers over Client that mirror the backend service contracts.
// Reads return the raw payload so the orchestrator can cache and relay
// it without a decode/encode round trip.

// AuthService talks to the auth backend.
type AuthService struct {
	client *Client
}

// NewAuthService wraps a client configured for the auth target.
func NewAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

// Register forwards a registration payload. Not retried: registration
// creates a user record downstream.
func (s *AuthService) Register(ctx context.Context, body json.RawMessage) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/register",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Login forwards a credentials payload.
func (s *AuthService) Login(ctx context.Context, body json.RawMessage) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetUser fetches a user profile by id.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodGet,
		Path:       fmt.Sprintf("/get-user/%s", userID),
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// TaskService talks to the task backend.
type TaskService struct {
	client *Client
}

// NewTaskService wraps a client configured for the task target.
func NewTaskService(c *Client) *TaskService {
	return &TaskService{client: c}
}

// GetByID fetches one task.
func (s *TaskService) GetByID(ctx context.Context, taskID uuid.UUID) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodGet,
		Path:       fmt.Sprintf("/%s", taskID),
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Query fetches a filtered, paged task list.
func (s *TaskService) Query(ctx context.Context, filter TaskFilter, page, pageSize int) ([]byte, error) {
	q := filter.Values()
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodGet,
		Path:       "",
		Query:      q,
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetHistory fetches a task's change history.
func (s *TaskService) GetHistory(ctx context.Context, taskID uuid.UUID) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodGet,
		Path:       fmt.Sprintf("/%s/history", taskID),
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Create forwards a task creation payload. Not retried. The full
// response is returned so the caller can relay the downstream status.
func (s *TaskService) Create(ctx context.Context, initiator uuid.UUID, body json.RawMessage) (*Response, error) {
	return s.client.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   "",
		Query:  url.Values{"initiatorUserId": []string{initiator.String()}},
		Body:   body,
	})
}

// Update replaces a task's mutable fields. Safe to retry: the update is
// a full replacement addressed by id.
func (s *TaskService) Update(ctx context.Context, initiator, taskID uuid.UUID, body json.RawMessage) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodPut,
		Path:       fmt.Sprintf("/%s", taskID),
		Query:      url.Values{"initiatorUserId": []string{initiator.String()}},
		Body:       body,
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Delete removes a task by id.
func (s *TaskService) Delete(ctx context.Context, initiator, taskID uuid.UUID) error {
	_, err := s.client.Call(ctx, Request{
		Method:     http.MethodDelete,
		Path:       fmt.Sprintf("/%s", taskID),
		Query:      url.Values{"initiatorUserId": []string{initiator.String()}},
		Idempotent: true,
	})
	return err
}

// NotificationService talks to the notification backend.
type NotificationService struct {
	client *Client
}

// NewNotificationService wraps a client configured for the notification target.
func NewNotificationService(c *Client) *NotificationService {
	return &NotificationService{client: c}
}

// ListForUser fetches a user's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]byte, error) {
	resp, err := s.client.Call(ctx, Request{
		Method:     http.MethodGet,
		Path:       fmt.Sprintf("/%s", userID),
		Query:      url.Values{"unreadOnly": []string{strconv.FormatBool(unreadOnly)}},
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Create stores a notification and returns its id together with the
// full response. Not retried: a lost response after a successful write
// would otherwise duplicate the notification.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*CreateNotificationResponse, *Response, error) {
	resp, err := s.client.Call(ctx, Request{
		Method: http.MethodPost,
		Path:   "",
		Body:   req,
	})
	if err != nil {
		return nil, nil, err
	}

	var created CreateNotificationResponse
	if err := resp.Decode(&created); err != nil {
		return nil, nil, err
	}
	return &created, resp, nil
}

// MarkRead marks one notification read for a recipient.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error {
	_, err := s.client.Call(ctx, Request{
		Method:     http.MethodPut,
		Path:       fmt.Sprintf("/%s/mark-as-read", notificationID),
		Query:      url.Values{"recipientId": []string{recipientID.String()}},
		Idempotent: true,
	})
	return err
}

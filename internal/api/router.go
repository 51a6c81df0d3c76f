package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskfabric/gateway/pkg/metrics"
)

// RouterDeps carries everything the router needs to register routes.
type RouterDeps struct {
	Auth          *AuthHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler

	// Authenticate guards the protected route group.
	Authenticate func(http.Handler) http.Handler

	// Push serves the WebSocket notification endpoint.
	Push http.Handler
}

// NewRouter builds the gateway's route tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", deps.Auth.Register)
		r.Post("/auth/login", deps.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Authenticate)

			r.Get("/auth/me", deps.Auth.Me)

			r.Get("/tasks", deps.Tasks.List)
			r.Post("/tasks", deps.Tasks.Create)
			r.Get("/tasks/{id}", deps.Tasks.Get)
			r.Put("/tasks/{id}", deps.Tasks.Update)
			r.Delete("/tasks/{id}", deps.Tasks.Delete)
			r.Get("/tasks/{id}/history", deps.Tasks.History)
			r.Put("/tasks/{id}/assign", deps.Tasks.Assign)

			r.Get("/notifications/{userId}", deps.Notifications.List)
			r.Post("/notifications", deps.Notifications.Create)
			r.Put("/notifications/{id}/mark-as-read", deps.Notifications.MarkRead)
		})
	})

	// The WebSocket handler authenticates on its own: browser clients
	// cannot set an Authorization header on the upgrade request.
	r.Handle("/ws/notifications", deps.Push)

	r.Handle("/metrics", metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

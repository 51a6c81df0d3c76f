package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/pkg/cache"
	"github.com/taskfabric/gateway/pkg/downstream"
)

// AuthHandler proxies registration, login and profile lookups to the
// auth service. Register and login pass straight through; the profile
// endpoint is cached per user.
type AuthHandler struct {
	auth    *downstream.AuthService
	store   *cache.Store
	userTTL time.Duration
	logger  zerolog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *downstream.AuthService, store *cache.Store, userTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		store:   store,
		userTTL: userTTL,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, err := h.auth.Register(r.Context(), json.RawMessage(body))
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}
	RespondWithRaw(w, http.StatusOK, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	resp, err := h.auth.Login(r.Context(), json.RawMessage(body))
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}
	RespondWithRaw(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	key := cache.UserKey(userID)
	if cached, err := h.store.Get(key); err == nil {
		RespondWithRaw(w, http.StatusOK, cached)
		return
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	resp, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		RespondWithFault(w, h.logger, err)
		return
	}

	h.store.Set(key, resp, h.userTTL)
	RespondWithRaw(w, http.StatusOK, resp)
}

// Package middleware provides HTTP middleware for the gateway,
// currently JWT bearer authentication.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/internal/api"
)

// Authenticator validates JWT bearer tokens issued by the auth service.
type Authenticator struct {
	signingKey []byte
	logger     zerolog.Logger
}

// NewAuthenticator creates an Authenticator verifying HMAC-signed
// tokens with the given secret.
func NewAuthenticator(secret string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		signingKey: []byte(secret),
		logger:     logger.With().Str("component", "auth_middleware").Logger(),
	}
}

// tokenClaims is the claim set the auth service puts in its tokens.
type tokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// Authenticate validates the bearer token and stores the user id in the
// request context for downstream handlers.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			api.RespondWithError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		userID, err := a.verify(token)
		if err != nil {
			a.logger.Debug().Err(err).Msg("token rejected")
			api.RespondWithError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(api.WithUserID(r.Context(), userID)))
	})
}

// Identify resolves the user behind a request without writing a
// response. It backs the WebSocket endpoint, where browser clients pass
// the token as an access_token query parameter instead of an
// Authorization header.
func (a *Authenticator) Identify(r *http.Request) (uuid.UUID, bool) {
	token, ok := bearerToken(r)
	if !ok {
		token = r.URL.Query().Get("access_token")
		if token == "" {
			return uuid.Nil, false
		}
	}

	userID, err := a.verify(token)
	if err != nil {
		a.logger.Debug().Err(err).Msg("token rejected")
		return uuid.Nil, false
	}
	return userID, true
}

func (a *Authenticator) verify(token string) (uuid.UUID, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("token carries no user id")
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

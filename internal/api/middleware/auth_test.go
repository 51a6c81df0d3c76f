package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/internal/api"
	"github.com/taskfabric/gateway/internal/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func echoUserHandler(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := api.GetUserID(r)
		if !ok {
			t.Error("user id missing from context in authenticated handler")
		}
		if userID != wantUser {
			t.Errorf("user id = %s, want %s", userID, wantUser)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	user := uuid.New()
	auth := NewAuthenticator(testSecret, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.SignToken(t, testSecret, user))
	rec := httptest.NewRecorder()

	auth.Authenticate(echoUserHandler(t, user)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	user := uuid.New()
	auth := NewAuthenticator(testSecret, zerolog.Nop())

	expired := func() string {
		claims := jwt.MapClaims{
			"uid": user.String(),
			"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		return token
	}()

	tests := []struct {
		name   string
		header string
	}{
		{"no_header", ""},
		{"not_bearer", "Basic dXNlcjpwdw=="},
		{"malformed_token", "Bearer not.a.token"},
		{"wrong_key", "Bearer " + testutil.SignToken(t, strings.Repeat("x", 32), user)},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			called := false
			auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler must not run for rejected requests")
			}
		})
	}
}

func TestIdentify_QueryParameterFallback(t *testing.T) {
	user := uuid.New()
	auth := NewAuthenticator(testSecret, zerolog.Nop())

	token := testutil.SignToken(t, testSecret, user)
	req := httptest.NewRequest(http.MethodGet, "/ws/notifications?access_token="+token, nil)

	got, ok := auth.Identify(req)
	if !ok {
		t.Fatal("Identify rejected a valid query token")
	}
	if got != user {
		t.Errorf("user = %s, want %s", got, user)
	}
}

func TestIdentify_PrefersAuthorizationHeader(t *testing.T) {
	user := uuid.New()
	auth := NewAuthenticator(testSecret, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.SignToken(t, testSecret, user))

	got, ok := auth.Identify(req)
	if !ok || got != user {
		t.Errorf("Identify = (%s, %v), want (%s, true)", got, ok, user)
	}
}

func TestIdentify_NoCredentials(t *testing.T) {
	auth := NewAuthenticator(testSecret, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	if _, ok := auth.Identify(req); ok {
		t.Error("Identify accepted a request without credentials")
	}
}

package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignToken mints an HS256 access token the way the auth service does,
// for use in handler tests.
func SignToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid": userID.String(),
		"sub": userID.String(),
		"iat": jwt.NewNumericDate(time.Now()),
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-access-secret"

func signTestToken(t *testing.T, subject string, isAdmin bool, expiresIn time.Duration) string {
	t.Helper()
	claims := accessClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authTestHandler(t *testing.T) (http.Handler, *AuthenticatedAccount) {
	t.Helper()
	var seen AuthenticatedAccount
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := r.Context().Value(AuthenticatedAccountContextKey).(AuthenticatedAccount)
		require.True(t, ok)
		seen = account
		w.WriteHeader(http.StatusOK)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return AuthMiddleware(testSecret, logger)(next), &seen
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler, seen := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-1", false, time.Hour))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc-1", seen.ID)
	assert.False(t, seen.IsAdmin)
}

func TestAuthMiddleware_AdminClaimPropagates(t *testing.T) {
	handler, seen := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-admin", true, time.Hour))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.IsAdmin)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-1", false, -time.Minute))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := AuthMiddleware("a-different-secret", logger)(next)

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-1", false, time.Hour))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	authed := AuthMiddleware(testSecret, logger)(AdminOnlyMiddleware(logger)(next))

	req := httptest.NewRequest(http.MethodPost, "/admin/adjustments", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-1", false, time.Hour))
	rec := httptest.NewRecorder()
	authed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/adjustments", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "acc-admin", true, time.Hour))
	rec = httptest.NewRecorder()
	authed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

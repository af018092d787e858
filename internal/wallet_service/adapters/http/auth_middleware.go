package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedAccountContextKey = ContextKey("authenticatedAccount")

// AuthenticatedAccount is the caller identity extracted from a verified access
// token.
type AuthenticatedAccount struct {
	ID      string
	IsAdmin bool
}

type accessClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the Bearer token against the shared access secret
// and puts the account identity on the request context.
func AuthMiddleware(accessSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := &accessClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(accessSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				http.Error(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}

			account := AuthenticatedAccount{
				ID:      claims.Subject,
				IsAdmin: claims.IsAdmin,
			}
			ctx := context.WithValue(r.Context(), AuthenticatedAccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnlyMiddleware rejects non-admin callers. AuthMiddleware must run
// first.
func AdminOnlyMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := r.Context().Value(AuthenticatedAccountContextKey).(AuthenticatedAccount)
			if !ok {
				logger.ErrorContext(r.Context(), "AuthenticatedAccount not found in context. AuthMiddleware must run first.")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !account.IsAdmin {
				logger.WarnContext(r.Context(), "Admin access denied", "account_id", account.ID)
				http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accountFromContext returns the authenticated caller, or fails the request.
func accountFromContext(w http.ResponseWriter, r *http.Request) (AuthenticatedAccount, bool) {
	account, ok := r.Context().Value(AuthenticatedAccountContextKey).(AuthenticatedAccount)
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return AuthenticatedAccount{}, false
	}
	return account, true
}

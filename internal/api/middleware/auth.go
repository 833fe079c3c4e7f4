// Package middleware contains the HTTP middleware for the API layer.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quicktask/quicktask-api/internal/api/shared"
	"github.com/quicktask/quicktask-api/internal/service/auth"
	"github.com/quicktask/quicktask-api/internal/store"
)

// AuthMiddleware provides JWT authentication for routes. Besides validating
// the token it resolves the subject against the user store, so a token whose
// subject no longer exists is rejected like any other invalid token.
type AuthMiddleware struct {
	jwtService auth.JWTService
	userStore  store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, userStore store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userStore:  userStore,
	}
}

// Authenticate validates bearer tokens from the Authorization header and
// adds the resolved user to the request context for authorized requests.
// Every failure path answers 401 with a WWW-Authenticate bearer challenge.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				shared.RespondUnauthorized(w, r, "Authorization header required")
			} else {
				shared.RespondUnauthorized(w, r, "Invalid authorization format")
			}
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondUnauthorized(w, r, "Token expired")
			default:
				shared.RespondUnauthorized(w, r, "Invalid token")
			}
			return
		}

		user, err := m.userStore.GetByUsername(r.Context(), claims.Subject)
		if err != nil {
			if store.IsNotFoundError(err) {
				// Unknown subject is indistinguishable from a bad token.
				shared.RespondUnauthorized(w, r, "Invalid token")
				return
			}
			slog.Error("failed to resolve token subject", "error", err)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the bearer token from the Authorization header.
// Returns auth.ErrMissingToken when the header is absent and
// auth.ErrInvalidToken when it is not a well-formed bearer scheme.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

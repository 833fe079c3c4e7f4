// Package shared holds the pieces of the API layer used by both handlers
// and middleware: context keys and response helpers.
package shared

import (
	"context"

	"github.com/quicktask/quicktask-api/internal/domain"
)

// contextKey is a private type for context keys defined in this package.
type contextKey string

// UserContextKey is the context key under which the authenticated user is
// stored by the auth middleware.
const UserContextKey contextKey = "current_user"

// UserFromContext returns the authenticated user stored in the context.
// Returns the user and a boolean indicating if it was found.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	return user, ok
}

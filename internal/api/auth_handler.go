// Package api implements the HTTP handlers for the QuickTask API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quicktask/quicktask-api/internal/api/shared"
	"github.com/quicktask/quicktask-api/internal/domain"
	"github.com/quicktask/quicktask-api/internal/service/auth"
	"github.com/quicktask/quicktask-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	validator        *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordHasher auth.PasswordHasher,
	passwordVerifier auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordHasher:   passwordHasher,
		passwordVerifier: passwordVerifier,
		validator:        validator.New(),
	}
}

// Register handles POST /auth/register. Duplicate usernames and emails are
// rejected with 400 and leave no partial state behind.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := domain.NewUser(req.Username, req.Email, req.Password)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user data: "+err.Error())
		return
	}

	hashed, err := h.passwordHasher.Hash(user.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err, "username", req.Username)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create user")
		return
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := h.userStore.Create(r.Context(), user); err != nil {
		switch {
		case store.IsDuplicateError(err):
			message := "Username already registered"
			if errors.Is(err, store.ErrEmailExists) {
				message = "Email already registered"
			}
			shared.RespondWithError(w, r, http.StatusBadRequest, message)
		default:
			slog.Error("failed to create user", "error", err, "username", req.Username)
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RegisterResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

// Token handles POST /auth/token, exchanging a username/password pair for a
// bearer token. Unknown users and wrong passwords are indistinguishable.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest

	if err := DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondUnauthorized(w, r, "Incorrect username or password")
			return
		}
		slog.Error("failed to authenticate user", "error", err, "username", req.Username)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to authenticate user")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user)
	if err != nil {
		slog.Error("failed to generate token", "error", err, "user_id", user.ID)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// authenticate resolves a username/password pair to a user. Unknown users and
// wrong passwords both come back as auth.ErrInvalidCredentials, so callers
// cannot tell the cases apart.
func (h *AuthHandler) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := h.userStore.GetByUsername(ctx, username)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	return user, nil
}

// Me handles GET /users/me, returning the authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		shared.RespondUnauthorized(w, r, "Authentication required")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

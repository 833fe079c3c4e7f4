package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktask/quicktask-api/internal/domain"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	t.Run("valid user", func(t *testing.T) {
		t.Parallel()

		user, err := domain.NewUser("alice", "alice@example.com", "pw1")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "pw1", user.Password)
		assert.Empty(t, user.HashedPassword)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("short password accepted", func(t *testing.T) {
		t.Parallel()

		// Password strength is not enforced, only bcrypt's length cap.
		_, err := domain.NewUser("bob", "bob@example.com", "x")
		assert.NoError(t, err)
	})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{name: "empty username", username: "", email: "a@b.co", password: "pw", wantErr: domain.ErrEmptyUsername},
		{name: "username too long", username: strings.Repeat("a", 65), email: "a@b.co", password: "pw", wantErr: domain.ErrUsernameTooLong},
		{name: "empty email", username: "alice", email: "", password: "pw", wantErr: domain.ErrEmptyEmail},
		{name: "email missing at", username: "alice", email: "alice.example.com", password: "pw", wantErr: domain.ErrInvalidEmail},
		{name: "email missing domain dot", username: "alice", email: "alice@example", password: "pw", wantErr: domain.ErrInvalidEmail},
		{name: "empty password", username: "alice", email: "a@b.co", password: "", wantErr: domain.ErrEmptyPassword},
		{name: "password too long", username: "alice", email: "a@b.co", password: strings.Repeat("p", 73), wantErr: domain.ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := domain.NewUser(tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserValidateStoredUser(t *testing.T) {
	t.Parallel()

	user, err := domain.NewUser("alice", "alice@example.com", "pw1")
	require.NoError(t, err)

	// A user loaded from the store carries only the hash.
	user.HashedPassword = "$2a$10$fakehashfakehashfakehash"
	user.Password = ""
	assert.NoError(t, user.Validate())

	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), domain.ErrEmptyPassword)
}

// Package authpw provides username/password credential checking.
package authpw

import (
	"context"
	"errors"

	"caretaker/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a bad username, a bad password,
// or a deactivated account; callers cannot tell which.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserStore defines the storage interface for credential checks
type UserStore interface {
	GetActiveUserByUsername(ctx context.Context, username string) (store.User, error)
}

// Service verifies submitted credentials against stored bcrypt hashes
type Service struct {
	store UserStore
}

// NewService creates a new credential-check service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignIn authenticates a user. Only active accounts are considered.
func (s *Service) SignIn(ctx context.Context, username, password string) (store.User, error) {
	if username == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetActiveUserByUsername(ctx, username)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens carrying {id, name}.
type TokenIssuer interface {
	Sign(id, name string) (string, error)
}

// CredentialServiceProvider defines the interface for authentication.
type CredentialServiceProvider interface {
	Authenticate(ctx context.Context, name, password string) (string, error)
}

// CredentialService verifies name/password pairs and issues session tokens.
// Sessions are stateless; nothing is persisted on login.
type CredentialService struct {
	users  store.UserStore
	issuer TokenIssuer
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(users store.UserStore, issuer TokenIssuer) *CredentialService {
	return &CredentialService{users: users, issuer: issuer}
}

// Authenticate returns a signed token for the account matching name and
// password. Any mismatch yields apperr.ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, name, password string) (string, error) {
	user, err := s.users.FindUserByName(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("authentication failed for %q: %w", name, apperr.ErrInvalidCredentials)
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("authentication failed for %q: %w", name, apperr.ErrInvalidCredentials)
	}

	token, err := s.issuer.Sign(user.ID, user.Name)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

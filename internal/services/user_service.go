package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/projection"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	ListUsers(ctx context.Context, query string, page Page) ([]models.User, error)
	GetUser(ctx context.Context, id, fields string) (projection.Document, error)
	CreateUser(ctx context.Context, name, password string, profile models.UserPatch) (models.User, error)
	UpdateUser(ctx context.Context, actor *auth.Claims, id string, patch models.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, actor *auth.Claims, id string) error
	RequireUser(ctx context.Context, id string) error
}

// UserService provides business logic for account management.
type UserService struct {
	users    store.UserStore
	resolver *projection.Resolver
	events   EventServiceProvider
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(users store.UserStore, resolver *projection.Resolver, events EventServiceProvider) *UserService {
	return &UserService{users: users, resolver: resolver, events: events}
}

// ListUsers returns one page of users whose name contains query.
func (s *UserService) ListUsers(ctx context.Context, query string, page Page) ([]models.User, error) {
	return s.users.ListUsers(ctx, store.ListFilter{NameContains: query, Skip: page.Skip, Limit: page.Limit})
}

// GetUser renders a single user for the requested ";"-separated fields.
func (s *UserService) GetUser(ctx context.Context, id, fields string) (projection.Document, error) {
	doc, err := s.resolver.Resolve(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return doc, nil
}

// CreateUser registers a new account, hashing its password. A taken name
// yields apperr.ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, name, password string, profile models.UserPatch) (models.User, error) {
	_, err := s.users.FindUserByName(ctx, name)
	if err == nil {
		return models.User{}, fmt.Errorf("user name %q is taken: %w", name, apperr.ErrConflict)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	profile.Name = nil
	profile.PasswordHash = nil
	profile.Apply(&user)
	user.Name = name
	user.PasswordHash = string(hashedPassword)
	user.Normalize()

	// The store's unique index still wins a race between two registrations.
	if err := s.users.CreateUser(ctx, user); err != nil {
		return models.User{}, err
	}

	log.Info().Str("user_id", user.ID).Str("name", user.Name).Msg("User created")
	recordEvent(ctx, s.events, models.EventUserCreate, user.ID, user.ID, fmt.Sprintf("%s joined", user.Name))
	return user, nil
}

// UpdateUser merges patch into the user's profile. Only the owner may update.
func (s *UserService) UpdateUser(ctx context.Context, actor *auth.Claims, id string, patch models.UserPatch) (models.User, error) {
	if err := auth.RequireOwner(actor, id); err != nil {
		return models.User{}, err
	}
	if err := s.RequireUser(ctx, id); err != nil {
		return models.User{}, err
	}

	if patch.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		hash := string(hashedPassword)
		patch.PasswordHash = &hash
	}

	user, err := s.users.UpdateUser(ctx, id, patch)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update user %s: %w", id, err)
	}

	log.Info().Str("user_id", id).Msg("User updated")
	recordEvent(ctx, s.events, models.EventUserUpdate, id, id, fmt.Sprintf("%s updated their profile", user.Name))
	return user, nil
}

// DeleteUser removes the account. Only the owner may delete. Other users'
// edge sets still reference the id afterwards.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.Claims, id string) error {
	if err := auth.RequireOwner(actor, id); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}

	log.Info().Str("user_id", id).Msg("User deleted")
	recordEvent(ctx, s.events, models.EventUserDelete, id, id, "account deleted")
	return nil
}

// RequireUser is the existence guard: it returns apperr.ErrNotFound when no
// user has the given id.
func (s *UserService) RequireUser(ctx context.Context, id string) error {
	ok, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

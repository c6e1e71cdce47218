// Package graph maintains the two edge sets each user owns: the users it
// follows and the topics it follows.
//
// Every operation loads the owner's current set from the store, which is the
// only source of truth. Add and Remove are load-modify-save with no version
// check, so concurrent writers to the same owner and kind race and the last
// write wins.
package graph

import (
	"context"
	"fmt"

	"github.com/isdelr/agora-be/internal/models"
)

// Store is the persistence surface the manager needs.
type Store interface {
	FindUser(ctx context.Context, id string) (models.User, error)
	FindUsers(ctx context.Context, ids []string) ([]models.User, error)
	FindTopics(ctx context.Context, ids []string) ([]models.Topic, error)
	SaveEdges(ctx context.Context, id string, kind models.EdgeKind, edges models.IDSet) error
	FindFollowers(ctx context.Context, kind models.EdgeKind, targetID string) ([]models.User, error)
}

// Manager applies edge mutations and answers edge queries.
type Manager struct {
	store Store
}

// NewManager creates a Manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Edges loads the owner's current edge set of kind.
func (m *Manager) Edges(ctx context.Context, ownerID string, kind models.EdgeKind) (models.IDSet, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown edge kind %q", kind)
	}
	owner, err := m.store.FindUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return owner.Edges(kind).Clone(), nil
}

// Add puts targetID into the owner's edge set. Adding a present id is a
// no-op and does not write.
func (m *Manager) Add(ctx context.Context, ownerID, targetID string, kind models.EdgeKind) error {
	edges, err := m.Edges(ctx, ownerID, kind)
	if err != nil {
		return err
	}
	if !edges.Add(targetID) {
		return nil
	}
	return m.store.SaveEdges(ctx, ownerID, kind, edges)
}

// Remove takes targetID out of the owner's edge set. Removing an absent id is
// a no-op and does not write.
func (m *Manager) Remove(ctx context.Context, ownerID, targetID string, kind models.EdgeKind) error {
	edges, err := m.Edges(ctx, ownerID, kind)
	if err != nil {
		return err
	}
	if !edges.Remove(targetID) {
		return nil
	}
	return m.store.SaveEdges(ctx, ownerID, kind, edges)
}

// ListFollowing returns the users the owner follows.
func (m *Manager) ListFollowing(ctx context.Context, ownerID string) ([]models.User, error) {
	edges, err := m.Edges(ctx, ownerID, models.EdgeFollowing)
	if err != nil {
		return nil, err
	}
	return m.store.FindUsers(ctx, edges.Slice())
}

// ListFollowingTopics returns the topics the owner follows.
func (m *Manager) ListFollowingTopics(ctx context.Context, ownerID string) ([]models.Topic, error) {
	edges, err := m.Edges(ctx, ownerID, models.EdgeFollowingTopics)
	if err != nil {
		return nil, err
	}
	return m.store.FindTopics(ctx, edges.Slice())
}

// ListFollowers returns every user whose following set contains targetID.
func (m *Manager) ListFollowers(ctx context.Context, targetID string) ([]models.User, error) {
	return m.store.FindFollowers(ctx, models.EdgeFollowing, targetID)
}

// ListTopicFollowers returns every user whose followingTopics set contains topicID.
func (m *Manager) ListTopicFollowers(ctx context.Context, topicID string) ([]models.User, error) {
	return m.store.FindFollowers(ctx, models.EdgeFollowingTopics, topicID)
}

// Package store persists users, topics and activity events. Each driver
// (memory, sqlite, mongo) implements the same interfaces; the rest of the
// service never sees a driver's query language.
//
// Drivers return apperr.ErrNotFound for absent records and apperr.ErrConflict
// for a duplicate user name. Lists are ordered by name, then id.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/isdelr/agora-be/internal/models"
)

// ListFilter selects a page of records whose name contains NameContains,
// compared case-insensitively. An empty NameContains matches everything.
type ListFilter struct {
	NameContains string
	Skip         int
	Limit        int
}

// UserStore persists user documents.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	FindUser(ctx context.Context, id string) (models.User, error)
	FindUserByName(ctx context.Context, name string) (models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	// FindUsers returns the users with the given ids; unknown ids are skipped.
	FindUsers(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context, f ListFilter) ([]models.User, error)
	// UpdateUser merges a profile patch. Edge sets are left untouched.
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	// SaveEdges overwrites one edge set of a user and nothing else.
	SaveEdges(ctx context.Context, id string, kind models.EdgeKind, edges models.IDSet) error
	DeleteUser(ctx context.Context, id string) error
	// FindFollowers returns every user whose edge set of kind contains targetID.
	FindFollowers(ctx context.Context, kind models.EdgeKind, targetID string) ([]models.User, error)
}

// TopicStore persists topics.
type TopicStore interface {
	CreateTopic(ctx context.Context, t models.Topic) error
	FindTopic(ctx context.Context, id string) (models.Topic, error)
	TopicExists(ctx context.Context, id string) (bool, error)
	// FindTopics returns the topics with the given ids; unknown ids are skipped.
	FindTopics(ctx context.Context, ids []string) ([]models.Topic, error)
	ListTopics(ctx context.Context, f ListFilter) ([]models.Topic, error)
	UpdateTopic(ctx context.Context, id string, patch models.TopicPatch) (models.Topic, error)
}

// EventStore persists the activity feed.
type EventStore interface {
	AppendEvent(ctx context.Context, e models.Event) error
	RecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	UserStore
	TopicStore
	EventStore
	Close(ctx context.Context) error
}

func edgeColumn(kind models.EdgeKind) (string, error) {
	switch kind {
	case models.EdgeFollowing:
		return "following_json", nil
	case models.EdgeFollowingTopics:
		return "following_topics_json", nil
	}
	return "", fmt.Errorf("unknown edge kind %q", kind)
}

func nameMatches(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func uniqueIDs(ids []string) []string {
	return models.NewIDSet(ids...).Slice()
}

package services

import (
	"context"
	"fmt"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/graph"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/rs/zerolog/log"
)

// FollowServiceProvider defines the interface for the follow graph.
type FollowServiceProvider interface {
	Follow(ctx context.Context, actor *auth.Claims, targetID string) error
	Unfollow(ctx context.Context, actor *auth.Claims, targetID string) error
	FollowTopic(ctx context.Context, actor *auth.Claims, topicID string) error
	UnfollowTopic(ctx context.Context, actor *auth.Claims, topicID string) error
	ListFollowing(ctx context.Context, userID string) ([]models.User, error)
	ListFollowers(ctx context.Context, userID string) ([]models.User, error)
	ListFollowingTopics(ctx context.Context, userID string) ([]models.Topic, error)
	ListTopicFollowers(ctx context.Context, topicID string) ([]models.User, error)
}

// FollowService guards and applies follow graph mutations. The acting user
// is always the owner of the edge set being changed.
//
// Every mutation runs its guards first and only touches the graph when all
// of them passed, so a failed guard never leaves a partial write.
type FollowService struct {
	graph  *graph.Manager
	users  *UserService
	topics *TopicService
	events EventServiceProvider
}

// NewFollowService creates a new FollowService. events may be nil.
func NewFollowService(manager *graph.Manager, users *UserService, topics *TopicService, events EventServiceProvider) *FollowService {
	return &FollowService{graph: manager, users: users, topics: topics, events: events}
}

// Follow adds targetID to the actor's following set. Following an already
// followed user succeeds without change. Self-follow is not rejected.
func (s *FollowService) Follow(ctx context.Context, actor *auth.Claims, targetID string) error {
	if err := s.guardUser(ctx, actor, targetID); err != nil {
		return err
	}
	if err := s.graph.Add(ctx, actor.ID, targetID, models.EdgeFollowing); err != nil {
		return fmt.Errorf("failed to follow user %s: %w", targetID, err)
	}

	log.Info().Str("user_id", actor.ID).Str("target_id", targetID).Msg("User followed")
	recordEvent(ctx, s.events, models.EventUserFollow, actor.ID, targetID, fmt.Sprintf("%s followed a user", actor.Name))
	return nil
}

// Unfollow removes targetID from the actor's following set.
func (s *FollowService) Unfollow(ctx context.Context, actor *auth.Claims, targetID string) error {
	if err := s.guardUser(ctx, actor, targetID); err != nil {
		return err
	}
	if err := s.graph.Remove(ctx, actor.ID, targetID, models.EdgeFollowing); err != nil {
		return fmt.Errorf("failed to unfollow user %s: %w", targetID, err)
	}

	log.Info().Str("user_id", actor.ID).Str("target_id", targetID).Msg("User unfollowed")
	recordEvent(ctx, s.events, models.EventUserUnfollow, actor.ID, targetID, fmt.Sprintf("%s unfollowed a user", actor.Name))
	return nil
}

// FollowTopic adds topicID to the actor's followingTopics set.
func (s *FollowService) FollowTopic(ctx context.Context, actor *auth.Claims, topicID string) error {
	if err := s.guardTopic(ctx, actor, topicID); err != nil {
		return err
	}
	if err := s.graph.Add(ctx, actor.ID, topicID, models.EdgeFollowingTopics); err != nil {
		return fmt.Errorf("failed to follow topic %s: %w", topicID, err)
	}

	log.Info().Str("user_id", actor.ID).Str("topic_id", topicID).Msg("Topic followed")
	recordEvent(ctx, s.events, models.EventTopicFollow, actor.ID, topicID, fmt.Sprintf("%s followed a topic", actor.Name))
	return nil
}

// UnfollowTopic removes topicID from the actor's followingTopics set.
func (s *FollowService) UnfollowTopic(ctx context.Context, actor *auth.Claims, topicID string) error {
	if err := s.guardTopic(ctx, actor, topicID); err != nil {
		return err
	}
	if err := s.graph.Remove(ctx, actor.ID, topicID, models.EdgeFollowingTopics); err != nil {
		return fmt.Errorf("failed to unfollow topic %s: %w", topicID, err)
	}

	log.Info().Str("user_id", actor.ID).Str("topic_id", topicID).Msg("Topic unfollowed")
	recordEvent(ctx, s.events, models.EventTopicUnfollow, actor.ID, topicID, fmt.Sprintf("%s unfollowed a topic", actor.Name))
	return nil
}

// ListFollowing returns the users userID follows.
func (s *FollowService) ListFollowing(ctx context.Context, userID string) ([]models.User, error) {
	return s.graph.ListFollowing(ctx, userID)
}

// ListFollowers returns the users following userID.
func (s *FollowService) ListFollowers(ctx context.Context, userID string) ([]models.User, error) {
	if err := s.users.RequireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.graph.ListFollowers(ctx, userID)
}

// ListFollowingTopics returns the topics userID follows.
func (s *FollowService) ListFollowingTopics(ctx context.Context, userID string) ([]models.Topic, error) {
	return s.graph.ListFollowingTopics(ctx, userID)
}

// ListTopicFollowers returns the users following topicID.
func (s *FollowService) ListTopicFollowers(ctx context.Context, topicID string) ([]models.User, error) {
	if err := s.topics.RequireTopic(ctx, topicID); err != nil {
		return nil, err
	}
	return s.graph.ListTopicFollowers(ctx, topicID)
}

func (s *FollowService) guardUser(ctx context.Context, actor *auth.Claims, targetID string) error {
	if actor == nil {
		return apperr.ErrUnauthorized
	}
	if err := s.users.RequireUser(ctx, actor.ID); err != nil {
		return err
	}
	return s.users.RequireUser(ctx, targetID)
}

func (s *FollowService) guardTopic(ctx context.Context, actor *auth.Claims, topicID string) error {
	if actor == nil {
		return apperr.ErrUnauthorized
	}
	if err := s.users.RequireUser(ctx, actor.ID); err != nil {
		return err
	}
	return s.topics.RequireTopic(ctx, topicID)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/rs/zerolog/log"
)

// TopicServiceProvider defines the interface for topic services.
type TopicServiceProvider interface {
	ListTopics(ctx context.Context, query string, page Page) ([]models.Topic, error)
	GetTopic(ctx context.Context, id string) (models.Topic, error)
	CreateTopic(ctx context.Context, actor *auth.Claims, topic models.Topic) (models.Topic, error)
	UpdateTopic(ctx context.Context, actor *auth.Claims, id string, patch models.TopicPatch) (models.Topic, error)
	RequireTopic(ctx context.Context, id string) error
}

// TopicService provides business logic for topics.
type TopicService struct {
	topics store.TopicStore
	events EventServiceProvider
}

// NewTopicService creates a new TopicService. events may be nil.
func NewTopicService(topics store.TopicStore, events EventServiceProvider) *TopicService {
	return &TopicService{topics: topics, events: events}
}

// ListTopics returns one page of topics whose name contains query.
func (s *TopicService) ListTopics(ctx context.Context, query string, page Page) ([]models.Topic, error) {
	return s.topics.ListTopics(ctx, store.ListFilter{NameContains: query, Skip: page.Skip, Limit: page.Limit})
}

// GetTopic retrieves a single topic.
func (s *TopicService) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	return s.topics.FindTopic(ctx, id)
}

// CreateTopic stores a new topic with a fresh id.
func (s *TopicService) CreateTopic(ctx context.Context, actor *auth.Claims, topic models.Topic) (models.Topic, error) {
	if actor == nil {
		return models.Topic{}, apperr.ErrUnauthorized
	}
	topic.ID = uuid.New().String()
	topic.CreatedAt = time.Now().UTC()

	if err := s.topics.CreateTopic(ctx, topic); err != nil {
		return models.Topic{}, fmt.Errorf("failed to create topic: %w", err)
	}

	log.Info().Str("topic_id", topic.ID).Str("user_id", actor.ID).Msg("Topic created")
	recordEvent(ctx, s.events, models.EventTopicCreate, actor.ID, topic.ID, fmt.Sprintf("topic %s created", topic.Name))
	return topic, nil
}

// UpdateTopic merges patch into an existing topic.
func (s *TopicService) UpdateTopic(ctx context.Context, actor *auth.Claims, id string, patch models.TopicPatch) (models.Topic, error) {
	if actor == nil {
		return models.Topic{}, apperr.ErrUnauthorized
	}
	topic, err := s.topics.UpdateTopic(ctx, id, patch)
	if err != nil {
		return models.Topic{}, fmt.Errorf("failed to update topic %s: %w", id, err)
	}

	log.Info().Str("topic_id", id).Str("user_id", actor.ID).Msg("Topic updated")
	recordEvent(ctx, s.events, models.EventTopicUpdate, actor.ID, id, fmt.Sprintf("topic %s updated", topic.Name))
	return topic, nil
}

// RequireTopic is the existence guard for topics.
func (s *TopicService) RequireTopic(ctx context.Context, id string) error {
	ok, err := s.topics.TopicExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

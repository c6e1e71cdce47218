package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/rs/zerolog/log"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, actorID, targetID, message string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// Publisher pushes recorded events to live subscribers.
type Publisher interface {
	Publish(event models.Event)
}

// EventService records the activity feed and fans it out to subscribers.
type EventService struct {
	store     store.EventStore
	publisher Publisher
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(store store.EventStore, publisher Publisher) *EventService {
	return &EventService{store: store, publisher: publisher}
}

// CreateEvent stores a new event and publishes it once stored.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, actorID, targetID, message string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		ActorID:   actorID,
		TargetID:  targetID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.AppendEvent(ctx, event); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return s.store.RecentEvents(ctx, limit)
}

// recordEvent writes an activity event on behalf of another service. A
// failure is logged and never fails the operation that triggered it.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, actorID, targetID, message string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, eventType, "info", actorID, targetID, message); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record activity event")
	}
}

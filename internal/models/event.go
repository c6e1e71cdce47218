package models

import "time"

// Event types recorded in the activity feed.
const (
	EventUserCreate    = "user.create"
	EventUserUpdate    = "user.update"
	EventUserDelete    = "user.delete"
	EventUserFollow    = "user.follow"
	EventUserUnfollow  = "user.unfollow"
	EventTopicCreate   = "topic.create"
	EventTopicUpdate   = "topic.update"
	EventTopicFollow   = "topic.follow"
	EventTopicUnfollow = "topic.unfollow"
	EventGraphAudit    = "graph.audit"
)

// Event represents an entry in the activity feed.
type Event struct {
	ID        string    `json:"id" bson:"_id"`
	Type      string    `json:"type" bson:"type"`   // e.g., "user.follow", "graph.audit"
	Level     string    `json:"level" bson:"level"` // e.g., "info", "warn"
	ActorID   string    `json:"actorId,omitempty" bson:"actor_id,omitempty"`
	TargetID  string    `json:"targetId,omitempty" bson:"target_id,omitempty"`
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

package models

import "time"

// Topic is an interest users can follow. Topics are also the targets of the
// company, job and school references on a profile.
type Topic struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	AvatarURL    string    `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Introduction string    `json:"introduction,omitempty" bson:"introduction,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// TopicPatch is a partial topic update.
type TopicPatch struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	AvatarURL    *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Introduction *string `json:"introduction,omitempty" validate:"omitempty,max=500"`
}

// Apply merges the patch into t.
func (p TopicPatch) Apply(t *Topic) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.AvatarURL != nil {
		t.AvatarURL = *p.AvatarURL
	}
	if p.Introduction != nil {
		t.Introduction = *p.Introduction
	}
}

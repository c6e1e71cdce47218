package models

import "time"

// Gender is the self-declared gender on a profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// EdgeKind names one of the two set-valued relationships a user owns.
type EdgeKind string

const (
	EdgeFollowing       EdgeKind = "following"
	EdgeFollowingTopics EdgeKind = "followingTopics"
)

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	return k == EdgeFollowing || k == EdgeFollowingTopics
}

// Employment references the topics for a company and a job title.
type Employment struct {
	Company string `json:"company,omitempty" bson:"company,omitempty"`
	Job     string `json:"job,omitempty" bson:"job,omitempty"`
}

// Education references the topic for a school.
type Education struct {
	School         string `json:"school,omitempty" bson:"school,omitempty"`
	Major          string `json:"major,omitempty" bson:"major,omitempty"`
	Diploma        int    `json:"diploma,omitempty" bson:"diploma,omitempty" validate:"omitempty,min=1,max=5"`
	EntranceYear   int    `json:"entrance_year,omitempty" bson:"entrance_year,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty" bson:"graduation_year,omitempty"`
}

// User represents a user account. The JSON encoding is the default
// visibility: password and both edge sets never leave through it.
type User struct {
	ID              string       `json:"id" bson:"_id"`
	Name            string       `json:"name" bson:"name"`
	PasswordHash    string       `json:"-" bson:"password"`
	AvatarURL       string       `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	Gender          Gender       `json:"gender" bson:"gender"`
	Headline        string       `json:"headline,omitempty" bson:"headline,omitempty"`
	Locations       []string     `json:"locations" bson:"locations"`
	Business        string       `json:"business,omitempty" bson:"business,omitempty"`
	Employments     []Employment `json:"employments" bson:"employments"`
	Educations      []Education  `json:"educations" bson:"educations"`
	Following       IDSet        `json:"-" bson:"following"`
	FollowingTopics IDSet        `json:"-" bson:"followingTopics"`
	CreatedAt       time.Time    `json:"createdAt" bson:"created_at"`
}

// Edges returns the edge set of the given kind. The returned set is shared
// with u; callers that mutate it must Clone first.
func (u *User) Edges(kind EdgeKind) IDSet {
	switch kind {
	case EdgeFollowing:
		return u.Following
	case EdgeFollowingTopics:
		return u.FollowingTopics
	}
	return nil
}

// SetEdges replaces the edge set of the given kind.
func (u *User) SetEdges(kind EdgeKind, edges IDSet) {
	switch kind {
	case EdgeFollowing:
		u.Following = edges
	case EdgeFollowingTopics:
		u.FollowingTopics = edges
	}
}

// Normalize fills nil collections so that stored and encoded documents use
// empty arrays rather than null.
func (u *User) Normalize() {
	if u.Gender == "" {
		u.Gender = GenderMale
	}
	if u.Locations == nil {
		u.Locations = []string{}
	}
	if u.Employments == nil {
		u.Employments = []Employment{}
	}
	if u.Educations == nil {
		u.Educations = []Education{}
	}
	if u.Following == nil {
		u.Following = IDSet{}
	}
	if u.FollowingTopics == nil {
		u.FollowingTopics = IDSet{}
	}
}

// Clone returns a deep copy so stores can hand out documents without sharing
// slices or sets with their internal state.
func (u User) Clone() User {
	out := u
	out.Locations = append([]string{}, u.Locations...)
	out.Employments = append([]Employment{}, u.Employments...)
	out.Educations = append([]Education{}, u.Educations...)
	out.Following = u.Following.Clone()
	out.FollowingTopics = u.FollowingTopics.Clone()
	return out
}

// UserPatch is a partial profile update. Nil fields are left untouched.
// Password carries the plaintext from the client; the service hashes it into
// PasswordHash before the patch reaches a store.
type UserPatch struct {
	Name         *string       `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	Password     *string       `json:"password,omitempty" validate:"omitempty,min=1"`
	PasswordHash *string       `json:"-"`
	AvatarURL    *string       `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Gender       *Gender       `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
	Headline     *string       `json:"headline,omitempty" validate:"omitempty,max=200"`
	Locations    *[]string     `json:"locations,omitempty"`
	Business     *string       `json:"business,omitempty"`
	Employments  *[]Employment `json:"employments,omitempty" validate:"omitempty,dive"`
	Educations   *[]Education  `json:"educations,omitempty" validate:"omitempty,dive"`
}

// Apply merges the patch into u. Edge sets are never touched by a patch.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Headline != nil {
		u.Headline = *p.Headline
	}
	if p.Locations != nil {
		u.Locations = append([]string{}, (*p.Locations)...)
	}
	if p.Business != nil {
		u.Business = *p.Business
	}
	if p.Employments != nil {
		u.Employments = append([]Employment{}, (*p.Employments)...)
	}
	if p.Educations != nil {
		u.Educations = append([]Education{}, (*p.Educations)...)
	}
}

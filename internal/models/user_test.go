package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserPatch_ApplyLeavesUnsetFields(t *testing.T) {
	u := User{Name: "alice", Headline: "hi", Following: NewIDSet("b")}
	gender := GenderFemale
	locations := []string{"Berlin", "Oslo"}

	UserPatch{Headline: strPtr("hello"), Gender: &gender, Locations: &locations}.Apply(&u)

	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, "hello", u.Headline)
	assert.Equal(t, GenderFemale, u.Gender)
	assert.Equal(t, []string{"Berlin", "Oslo"}, u.Locations)
	assert.True(t, u.Following.Has("b"))

	locations[0] = "Paris"
	assert.Equal(t, "Berlin", u.Locations[0], "patch slices must be copied")
}

func TestUserPatch_PlainPasswordIsNotApplied(t *testing.T) {
	u := User{PasswordHash: "old"}
	UserPatch{Password: strPtr("plain")}.Apply(&u)
	assert.Equal(t, "old", u.PasswordHash)

	UserPatch{PasswordHash: strPtr("new")}.Apply(&u)
	assert.Equal(t, "new", u.PasswordHash)
}

func TestUser_JSONHidesSecretsAndEdges(t *testing.T) {
	u := User{ID: "1", Name: "bob", PasswordHash: "hash", Following: NewIDSet("2"), FollowingTopics: NewIDSet("t")}
	u.Normalize()

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "password")
	assert.NotContains(t, m, "PasswordHash")
	assert.NotContains(t, m, "following")
	assert.NotContains(t, m, "followingTopics")
	assert.Equal(t, "male", m["gender"])
	assert.Equal(t, []any{}, m["locations"])
}

func TestUser_EdgesByKind(t *testing.T) {
	var u User
	u.SetEdges(EdgeFollowing, NewIDSet("a"))
	u.SetEdges(EdgeFollowingTopics, NewIDSet("t"))

	assert.True(t, u.Edges(EdgeFollowing).Has("a"))
	assert.True(t, u.Edges(EdgeFollowingTopics).Has("t"))
	assert.Nil(t, u.Edges(EdgeKind("bogus")))
	assert.False(t, EdgeKind("bogus").Valid())
}

func TestUser_CloneDoesNotShare(t *testing.T) {
	u := User{Locations: []string{"a"}, Following: NewIDSet("x")}
	c := u.Clone()
	c.Locations[0] = "b"
	c.Following.Add("y")

	assert.Equal(t, "a", u.Locations[0])
	assert.False(t, u.Following.Has("y"))
}

package store

import (
	"context"
	"testing"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/database"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func newMemory(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

func newSQLite(t *testing.T) Store {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	s := NewSQLiteStore(db)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

var drivers = map[string]storeFactory{
	"memory": newMemory,
	"sqlite": newSQLite,
}

func forEachDriver(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range drivers {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func seedUser(t *testing.T, s Store, id, name string) models.User {
	t.Helper()
	u := models.User{ID: id, Name: name, PasswordHash: "hash-" + id}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestStore_CreateAndFindUser(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		u := models.User{
			ID:           "u1",
			Name:         "alice",
			PasswordHash: "secret",
			AvatarURL:    "https://example.com/a.png",
			Gender:       models.GenderFemale,
			Headline:     "hello",
			Locations:    []string{"Berlin", "Oslo"},
			Employments:  []models.Employment{{Company: "t1", Job: "t2"}},
			Educations:   []models.Education{{School: "t3", Diploma: 2}},
		}
		require.NoError(t, s.CreateUser(ctx, u))

		got, err := s.FindUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Name)
		assert.Equal(t, "secret", got.PasswordHash)
		assert.Equal(t, models.GenderFemale, got.Gender)
		assert.Equal(t, []string{"Berlin", "Oslo"}, got.Locations)
		assert.Equal(t, []models.Employment{{Company: "t1", Job: "t2"}}, got.Employments)
		assert.Equal(t, 2, got.Educations[0].Diploma)
		assert.NotNil(t, got.Following)
		assert.Equal(t, 0, got.Following.Len())

		byName, err := s.FindUserByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", byName.ID)

		ok, err := s.UserExists(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.UserExists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_UserNotFound(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.FindUser(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = s.FindUserByName(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		assert.ErrorIs(t, s.DeleteUser(ctx, "missing"), apperr.ErrNotFound)
		assert.ErrorIs(t, s.SaveEdges(ctx, "missing", models.EdgeFollowing, models.NewIDSet("x")), apperr.ErrNotFound)

		_, err = s.UpdateUser(ctx, "missing", models.UserPatch{})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestStore_DuplicateNameConflicts(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "u1", "alice")
		seedUser(t, s, "u2", "bob")

		err := s.CreateUser(ctx, models.User{ID: "u3", Name: "alice", PasswordHash: "x"})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		taken := "alice"
		_, err = s.UpdateUser(ctx, "u2", models.UserPatch{Name: &taken})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestStore_ListUsersFiltersAndPages(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "u1", "Alice")
		seedUser(t, s, "u2", "malice")
		seedUser(t, s, "u3", "bob")
		seedUser(t, s, "u4", "ALIson")

		all, err := s.ListUsers(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"ALIson", "Alice", "bob", "malice"}, userNames(all))

		matched, err := s.ListUsers(ctx, ListFilter{NameContains: "ali", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"ALIson", "Alice", "malice"}, userNames(matched))

		page2, err := s.ListUsers(ctx, ListFilter{NameContains: "ali", Skip: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"malice"}, userNames(page2))

		none, err := s.ListUsers(ctx, ListFilter{NameContains: "%"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_ListFoldsNonASCIICase(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "u1", "Ömer")
		seedUser(t, s, "u2", "ÉLODIE")
		seedUser(t, s, "u3", "omar")

		matched, err := s.ListUsers(ctx, ListFilter{NameContains: "ö", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Ömer"}, userNames(matched))

		matched, err = s.ListUsers(ctx, ListFilter{NameContains: "élodie", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"ÉLODIE"}, userNames(matched))

		require.NoError(t, s.CreateTopic(ctx, models.Topic{ID: "t1", Name: "Ärzte"}))
		require.NoError(t, s.CreateTopic(ctx, models.Topic{ID: "t2", Name: "Arzt"}))
		topics, err := s.ListTopics(ctx, ListFilter{NameContains: "ärz", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Ärzte"}, topicNames(topics))
	})
}

func TestStore_UpdateUserKeepsEdges(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "u1", "alice")
		require.NoError(t, s.SaveEdges(ctx, "u1", models.EdgeFollowing, models.NewIDSet("u2")))

		headline := "new headline"
		hash := "new-hash"
		updated, err := s.UpdateUser(ctx, "u1", models.UserPatch{Headline: &headline, PasswordHash: &hash})
		require.NoError(t, err)
		assert.Equal(t, "new headline", updated.Headline)

		got, err := s.FindUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "new headline", got.Headline)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.True(t, got.Following.Has("u2"))
	})
}

func TestStore_EdgesAndFollowers(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "a", "anna")
		seedUser(t, s, "b", "bert")
		seedUser(t, s, "c", "carl")

		require.NoError(t, s.SaveEdges(ctx, "a", models.EdgeFollowing, models.NewIDSet("c")))
		require.NoError(t, s.SaveEdges(ctx, "b", models.EdgeFollowing, models.NewIDSet("c", "a")))
		require.NoError(t, s.SaveEdges(ctx, "b", models.EdgeFollowingTopics, models.NewIDSet("t1")))

		followers, err := s.FindFollowers(ctx, models.EdgeFollowing, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"anna", "bert"}, userNames(followers))

		followers, err = s.FindFollowers(ctx, models.EdgeFollowing, "b")
		require.NoError(t, err)
		assert.Empty(t, followers)

		topicFollowers, err := s.FindFollowers(ctx, models.EdgeFollowingTopics, "t1")
		require.NoError(t, err)
		assert.Equal(t, []string{"bert"}, userNames(topicFollowers))

		// The two edge kinds are independent.
		followers, err = s.FindFollowers(ctx, models.EdgeFollowing, "t1")
		require.NoError(t, err)
		assert.Empty(t, followers)

		_, err = s.FindFollowers(ctx, models.EdgeKind("bogus"), "c")
		assert.Error(t, err)
	})
}

func TestStore_FindUsersSkipsUnknown(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "a", "zed")
		seedUser(t, s, "b", "amy")

		users, err := s.FindUsers(ctx, []string{"a", "ghost", "b", "a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"amy", "zed"}, userNames(users))

		users, err = s.FindUsers(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestStore_DeleteDoesNotCascade(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, "a", "anna")
		seedUser(t, s, "b", "bert")
		require.NoError(t, s.SaveEdges(ctx, "a", models.EdgeFollowing, models.NewIDSet("b")))

		require.NoError(t, s.DeleteUser(ctx, "b"))

		a, err := s.FindUser(ctx, "a")
		require.NoError(t, err)
		assert.True(t, a.Following.Has("b"), "dangling edge is expected to remain")
	})
}

func TestStore_Topics(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.CreateTopic(ctx, models.Topic{ID: "t1", Name: "Go"}))
		require.NoError(t, s.CreateTopic(ctx, models.Topic{ID: "t2", Name: "golang tips", Introduction: "tips"}))
		require.NoError(t, s.CreateTopic(ctx, models.Topic{ID: "t3", Name: "Rust"}))

		got, err := s.FindTopic(ctx, "t2")
		require.NoError(t, err)
		assert.Equal(t, "tips", got.Introduction)

		_, err = s.FindTopic(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		ok, err := s.TopicExists(ctx, "t3")
		require.NoError(t, err)
		assert.True(t, ok)

		list, err := s.ListTopics(ctx, ListFilter{NameContains: "GO", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Go", "golang tips"}, topicNames(list))

		byIDs, err := s.FindTopics(ctx, []string{"t3", "t1", "missing"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Go", "Rust"}, topicNames(byIDs))

		name := "Rust lang"
		updated, err := s.UpdateTopic(ctx, "t3", models.TopicPatch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Rust lang", updated.Name)

		_, err = s.UpdateTopic(ctx, "missing", models.TopicPatch{Name: &name})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestStore_Events(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, id := range []string{"e1", "e2", "e3"} {
			require.NoError(t, s.AppendEvent(ctx, models.Event{ID: id, Type: models.EventUserFollow, Level: "info"}))
		}

		recent, err := s.RecentEvents(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "e3", recent[0].ID)
		assert.Equal(t, "e2", recent[1].ID)
	})
}

func userNames(users []models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Name
	}
	return out
}

func topicNames(topics []models.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.Name
	}
	return out
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/graph"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/projection"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *store.MemoryStore
	issuer *auth.Issuer
	pub    *recordingPublisher
	events *EventService
	users  *UserService
	topics *TopicService
	follow *FollowService
	creds  *CredentialService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	events := NewEventService(st, pub)
	users := NewUserService(st, projection.NewResolver(st), events)
	topics := NewTopicService(st, events)
	issuer := auth.NewIssuer("test-secret", time.Hour)

	return &fixture{
		store:  st,
		issuer: issuer,
		pub:    pub,
		events: events,
		users:  users,
		topics: topics,
		follow: NewFollowService(graph.NewManager(st), users, topics, events),
		creds:  NewCredentialService(st, issuer),
	}
}

func (f *fixture) mustUser(t *testing.T, name string) (models.User, *auth.Claims) {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), name, "pw-"+name, models.UserPatch{})
	require.NoError(t, err)
	return u, &auth.Claims{ID: u.ID, Name: u.Name}
}

func TestCreateUser_DuplicateNameConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, "alice", "pw", models.UserPatch{})
	require.NoError(t, err)

	_, err = f.users.CreateUser(ctx, "alice", "pw2", models.UserPatch{})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateUser_HashesPasswordAndAppliesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	headline := "hello"
	u, err := f.users.CreateUser(ctx, "carol", "secret", models.UserPatch{Headline: &headline})
	require.NoError(t, err)

	stored, err := f.store.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", stored.Name)
	assert.Equal(t, "hello", stored.Headline)
	assert.Equal(t, models.GenderMale, stored.Gender)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")))
	assert.Equal(t, []string{models.EventUserCreate}, f.pub.types())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bob, err := f.users.CreateUser(ctx, "bob", "right", models.UserPatch{})
	require.NoError(t, err)

	_, err = f.creds.Authenticate(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.creds.Authenticate(ctx, "nobody", "right")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	tok, err := f.creds.Authenticate(ctx, "bob", "right")
	require.NoError(t, err)

	claims, err := f.issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Name)
	assert.Equal(t, bob.ID, claims.ID)
}

func TestUpdateUser_RequiresOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, alice := f.mustUser(t, "alice")
	bob, _ := f.mustUser(t, "bob")

	name := "mallory"
	_, err := f.users.UpdateUser(ctx, alice, bob.ID, models.UserPatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stored, err := f.store.FindUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.Name)

	_, err = f.users.UpdateUser(ctx, nil, bob.ID, models.UserPatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestUpdateUser_ChangesPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, alice := f.mustUser(t, "alice")

	pw := "new-password"
	_, err := f.users.UpdateUser(ctx, alice, alice.ID, models.UserPatch{Password: &pw})
	require.NoError(t, err)

	_, err = f.creds.Authenticate(ctx, "alice", "pw-alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.creds.Authenticate(ctx, "alice", "new-password")
	assert.NoError(t, err)
}

func TestUpdateUser_KeepsEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, alice := f.mustUser(t, "alice")
	bob, _ := f.mustUser(t, "bob")
	require.NoError(t, f.follow.Follow(ctx, alice, bob.ID))

	headline := "updated"
	_, err := f.users.UpdateUser(ctx, alice, alice.ID, models.UserPatch{Headline: &headline})
	require.NoError(t, err)

	following, err := f.follow.ListFollowing(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, alice := f.mustUser(t, "alice")
	bob, bobClaims := f.mustUser(t, "bob")

	assert.ErrorIs(t, f.users.DeleteUser(ctx, alice, bob.ID), apperr.ErrForbidden)
	require.NoError(t, f.users.DeleteUser(ctx, bobClaims, bob.ID))
	assert.ErrorIs(t, f.users.RequireUser(ctx, bob.ID), apperr.ErrNotFound)
}

func TestGetUser_ProjectsFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, _ := f.mustUser(t, "alice")

	doc, err := f.users.GetUser(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.NotContains(t, doc, "password")
	assert.NotContains(t, doc, "following")

	doc, err = f.users.GetUser(ctx, alice.ID, "password;following")
	require.NoError(t, err)
	assert.Contains(t, doc, "password")
	assert.Contains(t, doc, "following")

	_, err = f.users.GetUser(ctx, "missing", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListUsers_Paginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"anna", "annabel", "bob", "joanna"} {
		f.mustUser(t, name)
	}

	got, err := f.users.ListUsers(ctx, "ANN", NewPage(1, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "anna", got[0].Name)
	assert.Equal(t, "annabel", got[1].Name)

	got, err = f.users.ListUsers(ctx, "ann", NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "joanna", got[0].Name)
}

func TestFollow_TwiceKeepsOneEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")
	b, _ := f.mustUser(t, "b")

	require.NoError(t, f.follow.Follow(ctx, a, b.ID))
	require.NoError(t, f.follow.Follow(ctx, a, b.ID))

	following, err := f.follow.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	followers, err := f.follow.ListFollowers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)
}

func TestFollow_MissingTargetMutatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")

	err := f.follow.Follow(ctx, a, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := f.store.FindUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Following.Len())

	assert.ErrorIs(t, f.follow.Follow(ctx, nil, "ghost"), apperr.ErrUnauthorized)
	assert.ErrorIs(t, f.follow.FollowTopic(ctx, a, "ghost"), apperr.ErrNotFound)
}

func TestUnfollow_TwiceSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")
	b, _ := f.mustUser(t, "b")

	require.NoError(t, f.follow.Follow(ctx, a, b.ID))
	require.NoError(t, f.follow.Unfollow(ctx, a, b.ID))
	require.NoError(t, f.follow.Unfollow(ctx, a, b.ID))

	following, err := f.follow.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestFollow_SelfIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, claims := f.mustUser(t, "a")
	require.NoError(t, f.follow.Follow(ctx, claims, a.ID))

	followers, err := f.follow.ListFollowers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
}

func TestFollowTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")
	topic, err := f.topics.CreateTopic(ctx, a, models.Topic{Name: "golang"})
	require.NoError(t, err)
	require.NotEmpty(t, topic.ID)

	require.NoError(t, f.follow.FollowTopic(ctx, a, topic.ID))
	require.NoError(t, f.follow.FollowTopic(ctx, a, topic.ID))

	topics, err := f.follow.ListFollowingTopics(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "golang", topics[0].Name)

	followers, err := f.follow.ListTopicFollowers(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	following, err := f.follow.ListFollowing(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	require.NoError(t, f.follow.UnfollowTopic(ctx, a, topic.ID))
	followers, err = f.follow.ListTopicFollowers(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)

	_, err = f.follow.ListTopicFollowers(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.follow.ListFollowers(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.follow.ListFollowingTopics(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTopics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")

	_, err := f.topics.CreateTopic(ctx, nil, models.Topic{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	topic, err := f.topics.CreateTopic(ctx, a, models.Topic{Name: "Rust"})
	require.NoError(t, err)

	intro := "systems language"
	updated, err := f.topics.UpdateTopic(ctx, a, topic.ID, models.TopicPatch{Introduction: &intro})
	require.NoError(t, err)
	assert.Equal(t, "Rust", updated.Name)
	assert.Equal(t, intro, updated.Introduction)

	got, err := f.topics.ListTopics(ctx, "rus", NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = f.topics.GetTopic(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEvents_RecordedForMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, a := f.mustUser(t, "a")
	b, _ := f.mustUser(t, "b")
	require.NoError(t, f.follow.Follow(ctx, a, b.ID))

	recent, err := f.events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, models.EventUserFollow, recent[0].Type)
	assert.Equal(t, a.ID, recent[0].ActorID)
	assert.Equal(t, b.ID, recent[0].TargetID)

	assert.Equal(t, []string{models.EventUserCreate, models.EventUserCreate, models.EventUserFollow}, f.pub.types())
}

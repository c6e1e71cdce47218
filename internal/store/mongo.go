package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore keeps users, topics and events as documents in three
// collections. Edge sets are arrays, so reverse lookups are plain equality
// matches against the array field.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	topics *mongo.Collection
	events *mongo.Collection
}

// NewMongoStore wraps db and ensures the unique index on user names.
func NewMongoStore(ctx context.Context, client *mongo.Client, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		client: client,
		users:  db.Collection("users"),
		topics: db.Collection("topics"),
		events: db.Collection("events"),
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: string(models.EdgeFollowing), Value: 1}}},
		{Keys: bson.D{{Key: string(models.EdgeFollowingTopics), Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating user indexes: %w", err)
	}
	return s, nil
}

// nameFilter matches names containing query, case-insensitively.
func nameFilter(query string) bson.M {
	if query == "" {
		return bson.M{}
	}
	return bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}}
}

func pageOptions(f ListFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if f.Skip > 0 {
		opts.SetSkip(int64(f.Skip))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return opts
}

func byName() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u models.User) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	u.Normalize()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user name %q: %w", u.Name, apperr.ErrConflict)
	}
	return err
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M, what string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	if err != nil {
		return models.User{}, err
	}
	u.Normalize()
	return u, nil
}

func (s *MongoStore) FindUser(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, "user "+id)
}

func (s *MongoStore) FindUserByName(ctx context.Context, name string) (models.User, error) {
	return s.findUser(ctx, bson.M{"name": name}, fmt.Sprintf("user name %q", name))
}

func (s *MongoStore) UserExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	n, err := s.users.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) findUsers(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	users, err := decodeAll[models.User](ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

func (s *MongoStore) FindUsers(ctx context.Context, ids []string) ([]models.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}}, byName())
}

func (s *MongoStore) ListUsers(ctx context.Context, f ListFilter) ([]models.User, error) {
	return s.findUsers(ctx, nameFilter(f.NameContains), pageOptions(f))
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	u, err := s.FindUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	patch.Apply(&u)

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	// Only profile fields are written; edge sets belong to SaveEdges.
	set := bson.M{
		"name":        u.Name,
		"password":    u.PasswordHash,
		"avatar_url":  u.AvatarURL,
		"gender":      u.Gender,
		"headline":    u.Headline,
		"locations":   u.Locations,
		"business":    u.Business,
		"employments": u.Employments,
		"educations":  u.Educations,
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return models.User{}, fmt.Errorf("user name %q: %w", u.Name, apperr.ErrConflict)
	}
	if err != nil {
		return models.User{}, err
	}
	if res.MatchedCount == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *MongoStore) SaveEdges(ctx context.Context, id string, kind models.EdgeKind, edges models.IDSet) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown edge kind %q", kind)
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{string(kind): edges}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteUser removes the user document. Other users' edge sets keep the id.
func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) FindFollowers(ctx context.Context, kind models.EdgeKind, targetID string) ([]models.User, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown edge kind %q", kind)
	}
	return s.findUsers(ctx, bson.M{string(kind): targetID}, byName())
}

func (s *MongoStore) CreateTopic(ctx context.Context, t models.Topic) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.topics.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("topic %s: %w", t.ID, apperr.ErrConflict)
	}
	return err
}

func (s *MongoStore) FindTopic(ctx context.Context, id string) (models.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var t models.Topic
	err := s.topics.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Topic{}, fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	return t, err
}

func (s *MongoStore) TopicExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	n, err := s.topics.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) findTopics(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	cur, err := s.topics.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Topic](ctx, cur)
}

func (s *MongoStore) FindTopics(ctx context.Context, ids []string) ([]models.Topic, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Topic{}, nil
	}
	return s.findTopics(ctx, bson.M{"_id": bson.M{"$in": ids}}, byName())
}

func (s *MongoStore) ListTopics(ctx context.Context, f ListFilter) ([]models.Topic, error) {
	return s.findTopics(ctx, nameFilter(f.NameContains), pageOptions(f))
}

func (s *MongoStore) UpdateTopic(ctx context.Context, id string, patch models.TopicPatch) (models.Topic, error) {
	t, err := s.FindTopic(ctx, id)
	if err != nil {
		return models.Topic{}, err
	}
	patch.Apply(&t)

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	set := bson.M{"name": t.Name, "avatar_url": t.AvatarURL, "introduction": t.Introduction}
	res, err := s.topics.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return models.Topic{}, err
	}
	if res.MatchedCount == 0 {
		return models.Topic{}, fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	return t, nil
}

func (s *MongoStore) AppendEvent(ctx context.Context, e models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.events.InsertOne(ctx, e)
	return err
}

func (s *MongoStore) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.events.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Event](ctx, cur)
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const userColumns = `id, name, password_hash, avatar_url, gender, headline, business,
	locations_json, employments_json, educations_json, following_json, following_topics_json, created_at`

const topicColumns = `id, name, avatar_url, introduction, created_at`

// SQLite's lower() folds ASCII only. name_contains(name, query) applies the
// same Unicode fold the other drivers use.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("name_contains", 2, nameContainsFunc)
}

func nameContainsFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	name, ok := textArg(args[0])
	if !ok {
		return int64(0), nil
	}
	query, _ := textArg(args[1])
	if nameMatches(name, query) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	return "", false
}

// SQLiteStore stores users as rows whose collections and edge sets live in
// JSON text columns. Reverse edge lookups use json_each.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a migrated database (see database.Migrate).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanUser is a helper to scan a user from a row or rows object.
func scanUser(scanner rowScanner) (models.User, error) {
	var u models.User
	var avatar, headline, business sql.NullString
	var locations, employments, educations, following, followingTopics string

	err := scanner.Scan(
		&u.ID, &u.Name, &u.PasswordHash, &avatar, &u.Gender, &headline, &business,
		&locations, &employments, &educations, &following, &followingTopics, &u.CreatedAt,
	)
	if err != nil {
		return u, err
	}

	u.AvatarURL = avatar.String
	u.Headline = headline.String
	u.Business = business.String

	for _, f := range []struct {
		raw  string
		dest any
	}{
		{locations, &u.Locations},
		{employments, &u.Employments},
		{educations, &u.Educations},
		{following, &u.Following},
		{followingTopics, &u.FollowingTopics},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return u, fmt.Errorf("decoding user %s: %w", u.ID, err)
		}
	}
	u.Normalize()
	return u, nil
}

func scanTopic(scanner rowScanner) (models.Topic, error) {
	var t models.Topic
	var avatar, intro sql.NullString
	if err := scanner.Scan(&t.ID, &t.Name, &avatar, &intro, &t.CreatedAt); err != nil {
		return t, err
	}
	t.AvatarURL = avatar.String
	t.Introduction = intro.String
	return t, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u models.User) error {
	u.Normalize()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var encoded [5]string
	for i, v := range []any{u.Locations, u.Employments, u.Educations, u.Following, u.FollowingTopics} {
		enc, err := encodeJSON(v)
		if err != nil {
			return err
		}
		encoded[i] = enc
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(`+userColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.PasswordHash, u.AvatarURL, string(u.Gender), u.Headline, u.Business,
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4], u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user name %q: %w", u.Name, apperr.ErrConflict)
	}
	return err
}

func (s *SQLiteStore) findUser(ctx context.Context, q rowQuerier, id string) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, err
}

func (s *SQLiteStore) FindUser(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, s.db, id)
}

func (s *SQLiteStore) FindUserByName(ctx context.Context, name string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user name %q: %w", name, apperr.ErrNotFound)
	}
	return u, err
}

func (s *SQLiteStore) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) queryUsers(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) FindUsers(ctx context.Context, ids []string) ([]models.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+") ORDER BY name, id",
		toArgs(ids)...)
}

func (s *SQLiteStore) ListUsers(ctx context.Context, f ListFilter) ([]models.User, error) {
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE name_contains(name, ?)
		ORDER BY name, id LIMIT ? OFFSET ?`,
		f.NameContains, limitArg(f.Limit), max(f.Skip, 0))
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	u, err := s.findUser(ctx, tx, id)
	if err != nil {
		return models.User{}, err
	}
	patch.Apply(&u)

	var encoded [3]string
	for i, v := range []any{u.Locations, u.Employments, u.Educations} {
		enc, err := encodeJSON(v)
		if err != nil {
			return models.User{}, err
		}
		encoded[i] = enc
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET name = ?, password_hash = ?, avatar_url = ?, gender = ?, headline = ?, business = ?,
		                 locations_json = ?, employments_json = ?, educations_json = ?
		WHERE id = ?`,
		u.Name, u.PasswordHash, u.AvatarURL, string(u.Gender), u.Headline, u.Business,
		encoded[0], encoded[1], encoded[2], id,
	)
	if isUniqueViolation(err) {
		return models.User{}, fmt.Errorf("user name %q: %w", u.Name, apperr.ErrConflict)
	}
	if err != nil {
		return models.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *SQLiteStore) SaveEdges(ctx context.Context, id string, kind models.EdgeKind, edges models.IDSet) error {
	column, err := edgeColumn(kind)
	if err != nil {
		return err
	}
	encoded, err := encodeJSON(edges)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+column+" = ? WHERE id = ?", encoded, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteUser removes the user row. Other users' edge sets keep the id.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) FindFollowers(ctx context.Context, kind models.EdgeKind, targetID string) ([]models.User, error) {
	column, err := edgeColumn(kind)
	if err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE EXISTS (SELECT 1 FROM json_each(users.`+column+`) WHERE json_each.value = ?)
		ORDER BY name, id`, targetID)
}

func (s *SQLiteStore) CreateTopic(ctx context.Context, t models.Topic) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO topics("+topicColumns+") VALUES(?, ?, ?, ?, ?)",
		t.ID, t.Name, t.AvatarURL, t.Introduction, t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("topic %s: %w", t.ID, apperr.ErrConflict)
	}
	return err
}

func (s *SQLiteStore) findTopic(ctx context.Context, q rowQuerier, id string) (models.Topic, error) {
	t, err := scanTopic(q.QueryRowContext(ctx, "SELECT "+topicColumns+" FROM topics WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Topic{}, fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	return t, err
}

func (s *SQLiteStore) FindTopic(ctx context.Context, id string) (models.Topic, error) {
	return s.findTopic(ctx, s.db, id)
}

func (s *SQLiteStore) TopicExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM topics WHERE id = ?)", id).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) queryTopics(ctx context.Context, query string, args ...any) ([]models.Topic, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []models.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *SQLiteStore) FindTopics(ctx context.Context, ids []string) ([]models.Topic, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Topic{}, nil
	}
	return s.queryTopics(ctx,
		"SELECT "+topicColumns+" FROM topics WHERE id IN ("+placeholders(len(ids))+") ORDER BY name, id",
		toArgs(ids)...)
}

func (s *SQLiteStore) ListTopics(ctx context.Context, f ListFilter) ([]models.Topic, error) {
	return s.queryTopics(ctx, `
		SELECT `+topicColumns+` FROM topics
		WHERE name_contains(name, ?)
		ORDER BY name, id LIMIT ? OFFSET ?`,
		f.NameContains, limitArg(f.Limit), max(f.Skip, 0))
}

func (s *SQLiteStore) UpdateTopic(ctx context.Context, id string, patch models.TopicPatch) (models.Topic, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Topic{}, err
	}
	defer tx.Rollback()

	t, err := s.findTopic(ctx, tx, id)
	if err != nil {
		return models.Topic{}, err
	}
	patch.Apply(&t)

	_, err = tx.ExecContext(ctx,
		"UPDATE topics SET name = ?, avatar_url = ?, introduction = ? WHERE id = ?",
		t.Name, t.AvatarURL, t.Introduction, id)
	if err != nil {
		return models.Topic{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Topic{}, err
	}
	return t, nil
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, e models.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, actor_id, target_id, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Type, e.Level, e.ActorID, e.TargetID, e.Message, e.CreatedAt)
	return err
}

func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, level, actor_id, target_id, message, created_at
		FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		var actor, target, message sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Level, &actor, &target, &message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID, e.TargetID, e.Message = actor.String, target.String, message.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// limitArg maps "no limit" onto SQLite's LIMIT -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

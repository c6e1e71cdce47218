package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/models"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// driver and serves as the fake in tests. Documents are cloned on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]models.User
	topics map[string]models.Topic
	events []models.Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]models.User),
		topics: make(map[string]models.Topic),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, apperr.ErrConflict)
	}
	for _, existing := range s.users {
		if existing.Name == u.Name {
			return fmt.Errorf("user name %q: %w", u.Name, apperr.ErrConflict)
		}
	}
	u.Normalize()
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindUserByName(_ context.Context, name string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Name == name {
			return u.Clone(), nil
		}
	}
	return models.User{}, fmt.Errorf("user name %q: %w", name, apperr.ErrNotFound)
}

func (s *MemoryStore) UserExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

func (s *MemoryStore) FindUsers(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *MemoryStore) ListUsers(_ context.Context, f ListFilter) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.User
	for _, u := range s.users {
		if nameMatches(u.Name, f.NameContains) {
			matched = append(matched, u.Clone())
		}
	}
	sortUsers(matched)
	return page(matched, f), nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, patch models.UserPatch) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	if patch.Name != nil && *patch.Name != u.Name {
		for otherID, other := range s.users {
			if otherID != id && other.Name == *patch.Name {
				return models.User{}, fmt.Errorf("user name %q: %w", *patch.Name, apperr.ErrConflict)
			}
		}
	}
	u = u.Clone()
	patch.Apply(&u)
	s.users[id] = u
	return u.Clone(), nil
}

func (s *MemoryStore) SaveEdges(_ context.Context, id string, kind models.EdgeKind, edges models.IDSet) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown edge kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	u.SetEdges(kind, edges.Clone())
	s.users[id] = u
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) FindFollowers(_ context.Context, kind models.EdgeKind, targetID string) ([]models.User, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown edge kind %q", kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.User{}
	for _, u := range s.users {
		if u.Edges(kind).Has(targetID) {
			out = append(out, u.Clone())
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *MemoryStore) CreateTopic(_ context.Context, t models.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[t.ID]; ok {
		return fmt.Errorf("topic %s: %w", t.ID, apperr.ErrConflict)
	}
	s.topics[t.ID] = t
	return nil
}

func (s *MemoryStore) FindTopic(_ context.Context, id string) (models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return models.Topic{}, fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	return t, nil
}

func (s *MemoryStore) TopicExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.topics[id]
	return ok, nil
}

func (s *MemoryStore) FindTopics(_ context.Context, ids []string) ([]models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Topic, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if t, ok := s.topics[id]; ok {
			out = append(out, t)
		}
	}
	sortTopics(out)
	return out, nil
}

func (s *MemoryStore) ListTopics(_ context.Context, f ListFilter) ([]models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Topic
	for _, t := range s.topics {
		if nameMatches(t.Name, f.NameContains) {
			matched = append(matched, t)
		}
	}
	sortTopics(matched)
	return page(matched, f), nil
}

func (s *MemoryStore) UpdateTopic(_ context.Context, id string, patch models.TopicPatch) (models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[id]
	if !ok {
		return models.Topic{}, fmt.Errorf("topic %s: %w", id, apperr.ErrNotFound)
	}
	patch.Apply(&t)
	s.topics[id] = t
	return t, nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
	return nil
}

func (s *MemoryStore) RecentEvents(_ context.Context, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Event{}
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}

func sortTopics(topics []models.Topic) {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Name != topics[j].Name {
			return topics[i].Name < topics[j].Name
		}
		return topics[i].ID < topics[j].ID
	})
}

func page[T any](items []T, f ListFilter) []T {
	out := []T{}
	skip := max(f.Skip, 0)
	if skip >= len(items) {
		return out
	}
	end := len(items)
	if f.Limit > 0 && skip+f.Limit < end {
		end = skip + f.Limit
	}
	return append(out, items[skip:end]...)
}

package models

import (
	"encoding/json"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// IDSet is an unordered set of entity ids. It is stored and transmitted as a
// sorted array so that encoded documents are stable.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, collapsing duplicates.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member of the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether the set changed.
func (s *IDSet) Add(id string) bool {
	if *s == nil {
		*s = IDSet{}
	}
	if s.Has(id) {
		return false
	}
	(*s)[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether the set changed.
func (s IDSet) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s, id)
	return true
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }

// Slice returns the members in ascending order. It never returns nil.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

func (s IDSet) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(s.Slice())
}

func (s *IDSet) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*s = IDSet{}
		return nil
	}
	var ids []string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// Package projection resolves the client-supplied "fields" list of a profile
// read into the hidden fields to reveal and the relations to expand, and
// renders a user document accordingly.
package projection

import (
	"context"
	"sort"
	"strings"

	"github.com/isdelr/agora-be/internal/models"
)

// Delimiter separates requested field names.
const Delimiter = ";"

// Expansion paths understood by Render.
const (
	PathFollowing         = "following"
	PathFollowingTopics   = "followingTopics"
	PathEmploymentCompany = "employments.company"
	PathEmploymentJob     = "employments.job"
	PathEducationSchool   = "educations.school"
)

// Fields hidden unless revealed.
const (
	FieldPassword        = "password"
	FieldFollowing       = "following"
	FieldFollowingTopics = "followingTopics"
)

// Set is a set of field names or paths.
type Set map[string]struct{}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func split(fields string) []string {
	var out []string
	for _, f := range strings.Split(fields, Delimiter) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// RevealSet returns the requested names. Empty entries are dropped.
func RevealSet(fields string) Set {
	s := Set{}
	for _, f := range split(fields) {
		s[f] = struct{}{}
	}
	return s
}

// ExpansionPaths returns the dereference paths for the requested names.
// "educations" only expands the school of each entry and "employments"
// expands both company and job; any other name expands itself.
func ExpansionPaths(fields string) Set {
	s := Set{}
	for _, f := range split(fields) {
		switch f {
		case "educations":
			s[PathEducationSchool] = struct{}{}
		case "employments":
			s[PathEmploymentCompany] = struct{}{}
			s[PathEmploymentJob] = struct{}{}
		default:
			s[f] = struct{}{}
		}
	}
	return s
}

// Document is a rendered user record.
type Document map[string]any

// Lookup is the read surface Render needs to dereference ids.
type Lookup interface {
	FindUser(ctx context.Context, id string) (models.User, error)
	FindUsers(ctx context.Context, ids []string) ([]models.User, error)
	FindTopics(ctx context.Context, ids []string) ([]models.Topic, error)
}

// Resolver renders projected user documents.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve loads the user and renders it for the requested fields. A missing
// user yields the lookup's not-found error.
func (r *Resolver) Resolve(ctx context.Context, id, fields string) (Document, error) {
	u, err := r.lookup.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, u, RevealSet(fields), ExpansionPaths(fields))
}

// Render builds the document for u. Hidden fields appear only when revealed;
// relations are dereferenced only when their path is in expand. Expanded
// arrays drop ids that no longer resolve, single references keep the bare id.
func (r *Resolver) Render(ctx context.Context, u models.User, reveal, expand Set) (Document, error) {
	topics, err := r.topicsFor(ctx, u, reveal, expand)
	if err != nil {
		return nil, err
	}

	doc := Document{
		"id":          u.ID,
		"name":        u.Name,
		"gender":      u.Gender,
		"locations":   nonNil(u.Locations),
		"employments": renderEmployments(u.Employments, expand, topics),
		"educations":  renderEducations(u.Educations, expand, topics),
		"createdAt":   u.CreatedAt,
	}
	putIfSet(doc, "avatar_url", u.AvatarURL)
	putIfSet(doc, "headline", u.Headline)
	putIfSet(doc, "business", u.Business)

	if reveal.Has(FieldPassword) {
		doc[FieldPassword] = u.PasswordHash
	}

	if reveal.Has(FieldFollowing) {
		if expand.Has(PathFollowing) {
			users, err := r.lookup.FindUsers(ctx, u.Following.Slice())
			if err != nil {
				return nil, err
			}
			doc[FieldFollowing] = users
		} else {
			doc[FieldFollowing] = u.Following.Slice()
		}
	}

	if reveal.Has(FieldFollowingTopics) {
		if expand.Has(PathFollowingTopics) {
			list := make([]models.Topic, 0, u.FollowingTopics.Len())
			for _, id := range u.FollowingTopics.Slice() {
				if t, ok := topics[id]; ok {
					list = append(list, t)
				}
			}
			sortTopics(list)
			doc[FieldFollowingTopics] = list
		} else {
			doc[FieldFollowingTopics] = u.FollowingTopics.Slice()
		}
	}

	return doc, nil
}

// topicsFor fetches, in one lookup, every topic an expansion will need.
func (r *Resolver) topicsFor(ctx context.Context, u models.User, reveal, expand Set) (map[string]models.Topic, error) {
	var ids []string
	for _, e := range u.Employments {
		if expand.Has(PathEmploymentCompany) && e.Company != "" {
			ids = append(ids, e.Company)
		}
		if expand.Has(PathEmploymentJob) && e.Job != "" {
			ids = append(ids, e.Job)
		}
	}
	if expand.Has(PathEducationSchool) {
		for _, e := range u.Educations {
			if e.School != "" {
				ids = append(ids, e.School)
			}
		}
	}
	if reveal.Has(FieldFollowingTopics) && expand.Has(PathFollowingTopics) {
		ids = append(ids, u.FollowingTopics.Slice()...)
	}

	byID := make(map[string]models.Topic, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	topics, err := r.lookup.FindTopics(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		byID[t.ID] = t
	}
	return byID, nil
}

func renderEmployments(in []models.Employment, expand Set, topics map[string]models.Topic) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, e := range in {
		m := map[string]any{}
		putRef(m, "company", e.Company, expand.Has(PathEmploymentCompany), topics)
		putRef(m, "job", e.Job, expand.Has(PathEmploymentJob), topics)
		out = append(out, m)
	}
	return out
}

func renderEducations(in []models.Education, expand Set, topics map[string]models.Topic) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, e := range in {
		m := map[string]any{}
		putRef(m, "school", e.School, expand.Has(PathEducationSchool), topics)
		putIfSet(m, "major", e.Major)
		putIfPositive(m, "diploma", e.Diploma)
		putIfPositive(m, "entrance_year", e.EntranceYear)
		putIfPositive(m, "graduation_year", e.GraduationYear)
		out = append(out, m)
	}
	return out
}

func putRef(m map[string]any, key, id string, expand bool, topics map[string]models.Topic) {
	if id == "" {
		return
	}
	if t, ok := topics[id]; ok && expand {
		m[key] = t
		return
	}
	m[key] = id
}

func putIfSet[M ~map[string]any](m M, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putIfPositive(m map[string]any, key string, value int) {
	if value > 0 {
		m[key] = value
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortTopics(topics []models.Topic) {
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Name != topics[j].Name {
			return topics[i].Name < topics[j].Name
		}
		return topics[i].ID < topics[j].ID
	})
}

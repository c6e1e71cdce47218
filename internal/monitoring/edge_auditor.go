package monitoring

import (
	"context"
	"fmt"

	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/services"
	"github.com/isdelr/agora-be/internal/store"
	"github.com/rs/zerolog/log"
)

const auditPageSize = 100

// AuditStore is the read surface the auditor scans.
type AuditStore interface {
	ListUsers(ctx context.Context, f store.ListFilter) ([]models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	TopicExists(ctx context.Context, id string) (bool, error)
}

// AuditReport summarizes one scan of the follow graph.
type AuditReport struct {
	UsersScanned   int `json:"usersScanned"`
	DanglingUsers  int `json:"danglingUsers"`
	DanglingTopics int `json:"danglingTopics"`
}

// Dangling returns the total number of edges pointing at missing records.
func (r AuditReport) Dangling() int {
	return r.DanglingUsers + r.DanglingTopics
}

// EdgeAuditor counts edges whose target no longer exists. Deleting a user
// leaves its id in other users' following sets; the auditor reports these
// and never rewrites an edge set.
type EdgeAuditor struct {
	store    AuditStore
	eventSvc services.EventServiceProvider
}

// NewEdgeAuditor creates a new EdgeAuditor. eventSvc may be nil.
func NewEdgeAuditor(store AuditStore, eventSvc services.EventServiceProvider) *EdgeAuditor {
	return &EdgeAuditor{store: store, eventSvc: eventSvc}
}

// Audit scans every user and checks each edge target for existence.
func (a *EdgeAuditor) Audit(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	usersSeen := make(map[string]bool)
	topicsSeen := make(map[string]bool)

	for skip := 0; ; skip += auditPageSize {
		users, err := a.store.ListUsers(ctx, store.ListFilter{Skip: skip, Limit: auditPageSize})
		if err != nil {
			return report, fmt.Errorf("failed to list users: %w", err)
		}

		for _, u := range users {
			report.UsersScanned++

			n, err := countMissing(ctx, u.Following, usersSeen, a.store.UserExists)
			if err != nil {
				return report, err
			}
			report.DanglingUsers += n

			n, err = countMissing(ctx, u.FollowingTopics, topicsSeen, a.store.TopicExists)
			if err != nil {
				return report, err
			}
			report.DanglingTopics += n
		}

		if len(users) < auditPageSize {
			break
		}
	}

	return report, nil
}

// Run performs one audit and records the outcome in the activity feed.
func (a *EdgeAuditor) Run(ctx context.Context) {
	report, err := a.Audit(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Edge audit failed")
		return
	}

	level := "info"
	logEvent := log.Info()
	if report.Dangling() > 0 {
		level = "warn"
		logEvent = log.Warn()
	}
	logEvent.
		Int("users_scanned", report.UsersScanned).
		Int("dangling_users", report.DanglingUsers).
		Int("dangling_topics", report.DanglingTopics).
		Msg("Edge audit complete")

	if a.eventSvc == nil {
		return
	}
	msg := fmt.Sprintf("scanned %d users: %d dangling user edges, %d dangling topic edges",
		report.UsersScanned, report.DanglingUsers, report.DanglingTopics)
	if err := a.eventSvc.CreateEvent(ctx, models.EventGraphAudit, level, "", "", msg); err != nil {
		log.Warn().Err(err).Msg("Failed to record edge audit event")
	}
}

// countMissing counts ids in edges that exists reports absent. seen caches
// answers across users.
func countMissing(ctx context.Context, edges models.IDSet, seen map[string]bool, exists func(context.Context, string) (bool, error)) (int, error) {
	missing := 0
	for id := range edges {
		ok, cached := seen[id]
		if !cached {
			var err error
			ok, err = exists(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("failed to check %s: %w", id, err)
			}
			seen[id] = ok
		}
		if !ok {
			missing++
		}
	}
	return missing, nil
}

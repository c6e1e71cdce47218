package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const auditTimeout = 5 * time.Minute

// Scheduler runs the edge auditor on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	auditor *EdgeAuditor
}

// NewScheduler creates a scheduler that runs auditor on spec. spec accepts
// the standard five-field syntax and descriptors such as "@every 1h".
func NewScheduler(spec string, auditor *EdgeAuditor) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		auditor: auditor,
	}
	if _, err := s.cron.AddFunc(spec, s.runAudit); err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running audit to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	s.auditor.Run(ctx)
}

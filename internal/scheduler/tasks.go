package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"tg-warden/internal/crash"
	"tg-warden/internal/logger"
	"tg-warden/internal/storage"
)

// Scheduler runs periodic maintenance over the ledger
type Scheduler struct {
	cron  *cron.Cron
	users *storage.UserRepository
}

// New creates a Scheduler over the given repository
func New(users *storage.UserRepository) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		users: users,
	}
}

// Start registers the expiry sweep at the given cron spec and starts
// the scheduler
func (s *Scheduler) Start(expirySweepSpec string) error {
	_, err := s.cron.AddFunc(expirySweepSpec, func() {
		defer crash.RecoverWithStack("expiry-sweep")
		s.sweepExpired()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("scheduler started, expiry sweep at %q", expirySweepSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweepExpired clears mute/ban flags whose window has elapsed
func (s *Scheduler) sweepExpired() {
	cleared, err := s.users.ClearExpiredRestrictions(time.Now())
	if err != nil {
		logger.Warningf("expiry sweep failed: %v", err)
		return
	}
	if cleared > 0 {
		logger.Infof("expiry sweep cleared %d expired restrictions", cleared)
	}
}

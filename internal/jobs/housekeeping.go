package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Purger deletes expired OTP codes and customer sessions.
type Purger interface {
	PurgeExpired(ctx context.Context) (otps int64, sessions int64, err error)
}

type Scheduler struct {
	scheduler gocron.Scheduler
	purger    Purger
	logger    *zap.Logger
}

func NewScheduler(purger Purger, every time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every <= 0 {
		every = time.Hour
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{scheduler: scheduler, purger: purger, logger: logger}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(s.purgeExpired, context.Background()),
		gocron.WithName("purge-expired-customer-auth"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("register purge job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("housekeeping scheduler started")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) purgeExpired(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	otps, sessions, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("purge expired customer auth failed", zap.Error(err))
		return
	}
	if otps > 0 || sessions > 0 {
		s.logger.Info("purged expired customer auth", zap.Int64("otps", otps), zap.Int64("sessions", sessions))
	}
}

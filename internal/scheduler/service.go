package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/insights"
)

// Service schedules the retention sweep over finished jobs and stored
// snapshots.
type Service struct {
	config   *config.Config
	insights *insights.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, insightsService *insights.Service) *Service {
	return &Service{
		config:   cfg,
		insights: insightsService,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled sweeps
func (s *Service) Start() error {
	retention := time.Duration(s.config.RetentionDays) * 24 * time.Hour

	// Nightly at 03:00 UTC, when dashboard traffic is lowest.
	_, err := s.cron.AddFunc("0 0 3 * * *", func() {
		logrus.Info("Starting retention sweep")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.insights.Sweep(ctx, retention)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started, retaining snapshots for %d days", s.config.RetentionDays)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

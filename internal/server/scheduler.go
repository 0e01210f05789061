package server

import (
	"context"
	"fmt"

	"blogcms/internal/middleware"

	"github.com/robfig/cron/v3"
)

// startScheduler registers the periodic feed sync when
// INSTAGRAM_SYNC_SCHEDULE is set.
func (s *Server) startScheduler() error {
	schedule := s.config.InstagramSyncSchedule
	if schedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.scheduledSync); err != nil {
		return fmt.Errorf("invalid feed sync schedule %q: %w", schedule, err)
	}
	c.Start()
	s.scheduler = c

	middleware.Logger.Info("scheduled feed sync enabled", "schedule", schedule)
	return nil
}

func (s *Server) scheduledSync() {
	if !s.feedService.SyncInBackground("schedule") {
		middleware.Logger.Info("scheduled feed sync skipped, previous sync still running")
	}
}

// stopScheduler waits for a running job to return or ctx to end.
func (s *Server) stopScheduler(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	select {
	case <-s.scheduler.Stop().Done():
	case <-ctx.Done():
	}
}

package staticpress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the background revalidation jobs: a frequent sweep that
// regenerates stale cached pages and a slower full re-enumeration that
// generates pages for newly published content.
type Scheduler struct {
	scheduler gocron.Scheduler
	cache     *PageCache
	builder   *Builder
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler for cache and builder. builder may be nil
// to skip re-enumeration.
func NewScheduler(cache *PageCache, builder *Builder, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, cache: cache, builder: builder, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// ScheduleSweep regenerates stale pages every interval.
func (s *Scheduler) ScheduleSweep(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweep),
		gocron.WithName("revalidate-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create sweep job: %w", err)
	}
	return job.ID().String(), nil
}

// ScheduleEnumerate rebuilds every enumerable page every interval.
func (s *Scheduler) ScheduleEnumerate(interval time.Duration) (string, error) {
	if s.builder == nil {
		return "", fmt.Errorf("re-enumeration needs a builder")
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.enumerate),
		gocron.WithName("re-enumerate"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create re-enumerate job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

func (s *Scheduler) sweep() {
	start := time.Now()
	n := s.cache.RevalidateStale(s.ctx)
	if n > 0 {
		s.logger.Info("Revalidated stale pages", slog.Int("pages", n), logDuration(time.Since(start)))
	}
}

func (s *Scheduler) enumerate() {
	report, err := s.builder.Build(s.ctx, "")
	if err != nil {
		s.logger.Error("Scheduled re-enumeration failed", logBuildID(report.ID), logErr(err))
	}
}

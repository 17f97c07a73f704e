package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/config"
	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

const snapshotJob = "inventory_snapshot"

// SnapshotCapturer records the current inventory totals.
type SnapshotCapturer interface {
	CaptureSnapshot(ctx context.Context) (*models.InventorySnapshot, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	capturer SnapshotCapturer
	schedule string
	metrics  *metrics.CronJobMetrics
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running jobs in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, capturer SnapshotCapturer, m *metrics.CronJobMetrics, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:     c,
		capturer: capturer,
		schedule: cfg.CronSchedule,
		metrics:  m,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.captureSnapshot); err != nil {
		return fmt.Errorf("schedule %s: %w", snapshotJob, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) captureSnapshot() {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot, err := s.capturer.CaptureSnapshot(ctx)
	s.metrics.Track(snapshotJob, started, err)
	switch {
	case err != nil:
		s.logger.Error("failed to capture inventory snapshot", zap.Error(err))
	case snapshot == nil:
		s.logger.Info("inventory snapshot skipped, no signed-in user")
	default:
		s.logger.Debug("snapshot job finished", zap.Duration("took", time.Since(started)))
	}
}

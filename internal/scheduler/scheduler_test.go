package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/config"
	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

type stubCapturer struct {
	calls int
	err   error
}

func (c *stubCapturer) CaptureSnapshot(context.Context) (*models.InventorySnapshot, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &models.InventorySnapshot{TotalStock: 10}, nil
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Mars/Olympus"}, &stubCapturer{}, nil, nil)
	assert.ErrorContains(t, err, "Mars/Olympus")
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every day", Timezone: "UTC"}, &stubCapturer{}, nil, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, s.Start(), snapshotJob)
}

func TestStartAndStop(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, &stubCapturer{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestCaptureSnapshotTracksOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	capturer := &stubCapturer{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, capturer, metrics.NewCronJobMetrics(reg), nil)
	require.NoError(t, err)

	s.captureSnapshot()
	capturer.err = errors.New("archive down")
	s.captureSnapshot()
	assert.Equal(t, 2, capturer.calls)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["stockroom_job_success_total"])
	assert.Equal(t, 1.0, values["stockroom_job_failure_total"])
}

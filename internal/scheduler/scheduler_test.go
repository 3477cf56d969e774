package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/recurra/internal/clock"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPricingSvc struct {
	pricingdomain.Service
	calls  int
	result pricingdomain.ApplyResult
	err    error
}

func (s *stubPricingSvc) ApplyDuePriceUpdates(context.Context) (pricingdomain.ApplyResult, error) {
	s.calls++
	return s.result, s.err
}

type heldLocker struct {
	released int
}

func (l *heldLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	return "", false, nil
}

func (l *heldLocker) Release(context.Context, string, string) error {
	l.released++
	return nil
}

func newTestScheduler(t *testing.T, svc pricingdomain.Service, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	sched, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		PricingSvc: svc,
		Config:     cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "recurra",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{})}
	err = s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "recurra",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "recurra_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "recurra",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "recurra_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunOnceDefersWhenLockIsHeld(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "recurra", Environment: "test"})

	svc := &stubPricingSvc{}
	sched := newTestScheduler(t, svc, Config{})
	locker := &heldLocker{}
	sched.locker = locker

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Zero(t, svc.calls)
	assert.Zero(t, locker.released)

	labels := map[string]string{
		"service": "recurra",
		"env":     "test",
		"job":     JobApplyPriceUpdates,
		"reason":  obsmetrics.SchedulerBatchDeferredReasonLockHeld,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "recurra_scheduler_batch_deferred_total", labels))
}

func TestRunOnceRecordsProcessedCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "recurra", Environment: "test"})

	svc := &stubPricingSvc{result: pricingdomain.ApplyResult{Due: 2, Applied: 2, SubscriptionsRepriced: 5}}
	sched := newTestScheduler(t, svc, Config{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, svc.calls)

	labels := map[string]string{
		"service":  "recurra",
		"env":      "test",
		"job":      JobApplyPriceUpdates,
		"resource": obsmetrics.LockResourceSubscriptions,
	}
	assert.Equal(t, 5.0, getCounterValue(t, registry, "recurra_scheduler_batch_processed_total", labels))
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	svc := &stubPricingSvc{err: errors.New("boom")}
	sched := newTestScheduler(t, svc, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobApplyPriceUpdates)
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	svc := &stubPricingSvc{}
	sched := newTestScheduler(t, svc, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Zero(t, svc.calls)
	assert.True(t, newTestScheduler(t, svc, Config{EnabledJobs: []string{"APPLY_PRICE_UPDATES"}}).isJobEnabled(JobApplyPriceUpdates))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{JobTimeout: 20 * time.Minute}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 20*time.Minute, cfg.LockTTL)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobApplyPriceUpdates = "apply_price_updates"

	lockKeyPrefix = "recurra:lock:scheduler"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	PricingSvc pricingdomain.Service
	Locker     ratelimit.Locker `optional:"true"`
	Config     Config           `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	pricingSvc pricingdomain.Service
	locker     ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.PricingSvc == nil {
		return nil, ErrInvalidConfig
	}
	locker := p.Locker
	if locker == nil {
		locker = ratelimit.NewLocker(nil)
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		pricingSvc: p.PricingSvc,
		locker:     locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the remainder
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobApplyPriceUpdates, s.isJobEnabled(JobApplyPriceUpdates), func(ctx context.Context) error {
			return s.runJob(ctx, JobApplyPriceUpdates, s.cfg.JobTimeout, s.withLock(JobApplyPriceUpdates, s.ApplyPriceUpdatesJob))
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// withLock runs fn only on the replica holding the job lease. A held lease defers the
// run to the next tick without error.
func (s *Scheduler) withLock(job string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		key := lockKeyPrefix + ":" + job
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			obsmetrics.Scheduler().IncBatchDeferred(job, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
			s.logger(ctx).Info("scheduler.job.deferred",
				zap.String("job", job),
				zap.String("reason", obsmetrics.SchedulerBatchDeferredReasonLockHeld),
			)
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.logger(ctx).Warn("release scheduler lock failed", zap.String("job", job), zap.Error(err))
			}
		}()
		return fn(ctx)
	}
}

// ApplyPriceUpdatesJob applies every scheduled price update that has reached its
// effective date and reprices the affected subscriptions.
func (s *Scheduler) ApplyPriceUpdatesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	result, err := s.pricingSvc.ApplyDuePriceUpdates(ctx)
	run.AddProcessed(result.Applied)

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.AddBatchProcessed(JobApplyPriceUpdates, obsmetrics.LockResourcePriceUpdates, result.Applied)
	schedMetrics.AddBatchProcessed(JobApplyPriceUpdates, obsmetrics.LockResourceSubscriptions, result.SubscriptionsRepriced)

	if result.Due > 0 {
		s.logger(ctx).Info("price updates applied",
			zap.Int("due", result.Due),
			zap.Int("applied", result.Applied),
			zap.Int("already_applied", result.AlreadyApplied),
			zap.Int("subscriptions_repriced", result.SubscriptionsRepriced),
		)
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.apply_price_updates.failed", JobApplyPriceUpdates, err)
		return err
	}
	return nil
}

package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/recurra/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("metricspush",
	fx.Provide(NewPusher),
	fx.Invoke(Run),
)

// Run pushes the default registry on an interval and once more on shutdown
// so the last scheduler pass is not lost.
func Run(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("metricspush")

	interval := cfg.MetricsPushInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pushOnce(ctx, pusher); err != nil {
							log.Warn("metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			if err := pushOnce(stopCtx, pusher); err != nil {
				log.Warn("final metrics push failed", zap.Error(err))
			}
			return nil
		},
	})
}

func pushOnce(ctx context.Context, pusher Pusher) error {
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	return pusher.Push(pushCtx, prometheus.DefaultGatherer)
}

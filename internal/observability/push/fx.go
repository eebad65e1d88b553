package push

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const pushInterval = time.Minute

// Module pushes the default gatherer periodically and once more on shutdown so the last
// work items processed by a short-lived worker are not lost.
var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(func(lc fx.Lifecycle, pusher Pusher, log *zap.Logger) {
		if pusher == nil {
			return
		}
		log = log.Named("metrics.push")
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					ticker := time.NewTicker(pushInterval)
					defer ticker.Stop()
					for {
						select {
						case <-ticker.C:
							if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
								log.Warn("periodic metrics push failed", zap.Error(err))
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
				if err := pusher.Push(stopCtx, prometheus.DefaultGatherer); err != nil {
					log.Warn("final metrics push failed", zap.Error(err))
				}
				return nil
			},
		})
	}),
)

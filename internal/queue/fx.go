package queue

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/domainledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the queue backends. Producers only need this module.
var Module = fx.Module("queue",
	fx.Provide(NewBackends),
)

// WorkerModule consumes the queue. Handlers must be provided elsewhere.
var WorkerModule = fx.Module("queue.worker",
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

type Backends struct {
	fx.Out

	Queue    Queue
	Enqueuer Enqueuer
	Batches  Batches
}

// NewBackends picks Redis when a client is configured and the in-process queue otherwise.
func NewBackends(cfg config.Config, client *redis.Client, log *zap.Logger) Backends {
	if client == nil {
		log.Named("queue").Info("using in-memory queue")
		q := NewMemoryQueue()
		return Backends{Queue: q, Enqueuer: q, Batches: NewMemoryBatches()}
	}
	q := NewRedisQueue(client, cfg.Queue.Name)
	return Backends{Queue: q, Enqueuer: q, Batches: NewRedisBatches(client, cfg.Queue.Name)}
}

type recoverer interface {
	Recover(ctx context.Context) (int, error)
}

func runWorker(lc fx.Lifecycle, worker *Worker, q Queue, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if r, ok := q.(recoverer); ok {
				moved, err := r.Recover(startCtx)
				if err != nil {
					log.Warn("queue recover failed", zap.Error(err))
				} else if moved > 0 {
					log.Info("requeued in-flight items", zap.Int("count", moved))
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				worker.RunForever(ctx)
			}()

			lc.Append(fx.Hook{
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
			return nil
		},
	})
}

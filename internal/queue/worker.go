package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/domainledger/internal/config"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler runs one work item. Returning a retryable error redelivers the item.
type Handler func(ctx context.Context, item WorkItem) error

// Handlers routes items by kind.
type Handlers map[Kind]Handler

type Params struct {
	fx.In

	Config   config.Config
	Queue    Queue
	Batches  Batches
	Handlers Handlers
	Metrics  *metrics.SyncMetrics `optional:"true"`
	Log      *zap.Logger
}

type Worker struct {
	queue       Queue
	batches     Batches
	handlers    Handlers
	metrics     *metrics.SyncMetrics
	log         *zap.Logger
	concurrency int
	itemTimeout time.Duration
}

func NewWorker(p Params) *Worker {
	concurrency := p.Config.Queue.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := p.Config.Queue.ItemTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Worker{
		queue:       p.Queue,
		batches:     p.Batches,
		handlers:    p.Handlers,
		metrics:     p.Metrics,
		log:         p.Log.Named("queue.worker"),
		concurrency: concurrency,
		itemTimeout: timeout,
	}
}

// RunForever consumes items until ctx ends, running up to the configured number at once.
func (w *Worker) RunForever(ctx context.Context) {
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for ctx.Err() == nil {
		d, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrNoItem) || ctx.Err() != nil {
				continue
			}
			w.log.Warn("queue.dequeue.failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		g.Go(func() error {
			w.process(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

// ProcessNext handles a single item synchronously. It returns ErrNoItem when the queue
// stayed empty for the poll timeout.
func (w *Worker) ProcessNext(ctx context.Context) error {
	d, err := w.queue.Dequeue(ctx)
	if err != nil {
		return err
	}
	w.process(ctx, d)
	return nil
}

func (w *Worker) process(ctx context.Context, d *Delivery) {
	item := d.Item
	ctx = obscontext.WithWorkItemID(ctx, item.ID)
	if item.UserID != "" {
		ctx = obscontext.WithUserID(ctx, item.UserID)
	}
	log := logger.WithContext(ctx, w.log).With(
		zap.String("kind", string(item.Kind)),
		zap.String("subject", item.Subject()),
		zap.Int("attempt", item.Attempt),
	)

	handler, ok := w.handlers[item.Kind]
	if !ok {
		log.Warn("queue.item.unhandled")
		w.ack(ctx, d, log)
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, w.itemTimeout)
	start := time.Now()
	err := runHandler(itemCtx, handler, item)
	cancel()
	w.metrics.ObserveQueueItem(string(item.Kind), time.Since(start), err)

	if ctx.Err() != nil {
		// Shutting down: leave the item in flight so it is recovered on the next start.
		log.Info("queue.item.interrupted", zap.Error(err))
		return
	}

	final := true
	switch {
	case err == nil:
		log.Debug("queue.item.done", zap.Duration("duration", time.Since(start)))
	case item.WillRetry(err):
		retry := item
		retry.Attempt++
		if enqErr := w.queue.Enqueue(ctx, retry); enqErr != nil {
			log.Error("queue.item.retry.failed", zap.Error(err), zap.NamedError("enqueue_error", enqErr))
		} else {
			final = false
			log.Warn("queue.item.retry", zap.Error(err))
		}
	default:
		log.Error("queue.item.failed", zap.Error(err))
	}

	if final && item.BatchID != "" {
		w.finishBatchMember(ctx, item, log)
	}
	w.ack(ctx, d, log)
}

func (w *Worker) finishBatchMember(ctx context.Context, item WorkItem, log *zap.Logger) {
	then, ok, err := w.batches.Done(ctx, item.BatchID, item.ID)
	if err != nil {
		log.Warn("queue.batch.done.failed", zap.String("batch_id", item.BatchID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := w.queue.Enqueue(ctx, then); err != nil {
		log.Error("queue.batch.followup.failed", zap.String("batch_id", item.BatchID), zap.Error(err))
		return
	}
	log.Info("queue.batch.completed",
		zap.String("batch_id", item.BatchID),
		zap.String("followup", string(then.Kind)),
	)
}

func (w *Worker) ack(ctx context.Context, d *Delivery, log *zap.Logger) {
	if err := w.queue.Ack(context.WithoutCancel(ctx), d); err != nil {
		log.Warn("queue.item.ack.failed", zap.Error(err))
	}
}

func runHandler(ctx context.Context, h Handler, item WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, item)
}

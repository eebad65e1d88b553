package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue() *MemoryQueue {
	q := NewMemoryQueue()
	q.pollTimeout = 20 * time.Millisecond
	return q
}

func newTestWorker(q *MemoryQueue, batches Batches, handlers Handlers) *Worker {
	cfg := config.Config{Queue: config.QueueConfig{Concurrency: 2, ItemTimeout: time.Second}}
	return NewWorker(Params{Config: cfg, Queue: q, Batches: batches, Handlers: handlers, Log: zap.NewNop()})
}

func TestMemoryQueueStampsItems(t *testing.T) {
	q := newTestQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, SyncDomain(7, "42"), SyncRdaps("")))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Item.ID)
	assert.False(t, first.Item.EnqueuedAt.IsZero())
	assert.Equal(t, KindSyncDomain, first.Item.Kind)
	assert.Equal(t, "domain:7", first.Item.Subject())

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Item.ID, second.Item.ID)

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrNoItem)
}

func TestEnqueueRejectsIncompleteItems(t *testing.T) {
	q := newTestQueue()
	ctx := context.Background()
	assert.ErrorIs(t, q.Enqueue(ctx, SyncDomain(0, "")), ErrInvalidItem)
	assert.ErrorIs(t, q.Enqueue(ctx, SyncRegistrarTypePrices(3, "", "")), ErrInvalidItem)
	assert.ErrorIs(t, q.Enqueue(ctx, WorkItem{Kind: "unknown"}), ErrInvalidItem)
	assert.Equal(t, 0, q.Len())
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	q := newTestQueue()
	var calls atomic.Int32
	w := newTestWorker(q, NewMemoryBatches(), Handlers{
		KindSyncRdaps: func(ctx context.Context, item WorkItem) error {
			calls.Add(1)
			return syncerr.TransientFetch("iana", "Request failed", nil)
		},
	})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, SyncRdaps("")))

	for i := 0; i < MaxAttempts; i++ {
		require.NoError(t, w.ProcessNext(ctx))
	}
	assert.ErrorIs(t, w.ProcessNext(ctx), ErrNoItem)
	assert.Equal(t, int32(MaxAttempts), calls.Load())
}

func TestWorkerDoesNotRetryPermanentFailures(t *testing.T) {
	q := newTestQueue()
	var calls atomic.Int32
	w := newTestWorker(q, NewMemoryBatches(), Handlers{
		KindSyncDomain: func(ctx context.Context, item WorkItem) error {
			calls.Add(1)
			return errors.New("boom")
		},
	})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, SyncDomain(1, "")))
	require.NoError(t, w.ProcessNext(ctx))
	assert.ErrorIs(t, w.ProcessNext(ctx), ErrNoItem)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWorkerRecoversFromPanics(t *testing.T) {
	q := newTestQueue()
	w := newTestWorker(q, NewMemoryBatches(), Handlers{
		KindSyncDomain: func(ctx context.Context, item WorkItem) error {
			panic("nil map")
		},
	})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, SyncDomain(1, "")))
	assert.NotPanics(t, func() { _ = w.ProcessNext(ctx) })
}

func TestWorkerPassesWorkItemContext(t *testing.T) {
	q := newTestQueue()
	var deadline bool
	w := newTestWorker(q, NewMemoryBatches(), Handlers{
		KindSyncDomain: func(ctx context.Context, item WorkItem) error {
			_, deadline = ctx.Deadline()
			return nil
		},
	})
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, SyncDomain(9, "")))
	require.NoError(t, w.ProcessNext(ctx))
	assert.True(t, deadline)
}

func TestBatchFollowUpRunsAfterLastMember(t *testing.T) {
	q := newTestQueue()
	batches := NewMemoryBatches()
	var backfills atomic.Int32
	w := newTestWorker(q, batches, Handlers{
		KindSyncRegistrarTypePrices: func(ctx context.Context, item WorkItem) error {
			if item.Category == "promo" {
				return errors.New("promo page changed")
			}
			return nil
		},
		KindBackfillRegistrarFees: func(ctx context.Context, item WorkItem) error {
			backfills.Add(1)
			return nil
		},
	})
	ctx := context.Background()

	batchID := NewBatchID()
	require.NoError(t, batches.Open(ctx, batchID, 3, BackfillRegistrarFees(5, "")))
	for _, category := range []string{"recommend", "promo", "umum"} {
		item := SyncRegistrarTypePrices(5, category, "")
		item.BatchID = batchID
		require.NoError(t, q.Enqueue(ctx, item))
	}

	require.NoError(t, w.ProcessNext(ctx))
	require.NoError(t, w.ProcessNext(ctx))
	assert.Equal(t, 1, q.Len(), "backfill must wait for the last member")

	require.NoError(t, w.ProcessNext(ctx))
	require.Equal(t, 1, q.Len())
	require.NoError(t, w.ProcessNext(ctx))
	assert.Equal(t, int32(1), backfills.Load())
}

func TestMemoryBatchesUnknownBatch(t *testing.T) {
	b := NewMemoryBatches()
	_, ok, err := b.Done(context.Background(), "missing", "member")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, b.Open(context.Background(), "x", 0, WorkItem{}), ErrInvalidItem)
	_, _, err = b.Done(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestMemoryBatchesCountEachMemberOnce(t *testing.T) {
	b := NewMemoryBatches()
	ctx := context.Background()
	require.NoError(t, b.Open(ctx, "batch", 2, BackfillRegistrarFees(5, "")))

	_, ok, err := b.Done(ctx, "batch", "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = b.Done(ctx, "batch", "a")
	require.NoError(t, err)
	assert.False(t, ok, "a repeated member must not complete the batch")

	then, ok, err := b.Done(ctx, "batch", "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindBackfillRegistrarFees, then.Kind)

	_, ok, err = b.Done(ctx, "batch", "b")
	require.NoError(t, err)
	assert.False(t, ok, "a late repeat after completion is ignored")
}

func TestRedeliveredBatchMemberDoesNotReleaseFollowUp(t *testing.T) {
	q := newTestQueue()
	batches := NewMemoryBatches()
	var backfills atomic.Int32
	w := newTestWorker(q, batches, Handlers{
		KindSyncRegistrarTypePrices: func(ctx context.Context, item WorkItem) error { return nil },
		KindBackfillRegistrarFees: func(ctx context.Context, item WorkItem) error {
			backfills.Add(1)
			return nil
		},
	})
	ctx := context.Background()

	batchID := NewBatchID()
	require.NoError(t, batches.Open(ctx, batchID, 2, BackfillRegistrarFees(5, "")))
	promo := SyncRegistrarTypePrices(5, "promo", "")
	promo.BatchID = batchID
	promo.ID = "01HZZPROMO"
	toko := SyncRegistrarTypePrices(5, "toko", "")
	toko.BatchID = batchID

	// The same promo item delivered twice, then toko.
	require.NoError(t, q.Enqueue(ctx, promo, promo, toko))

	require.NoError(t, w.ProcessNext(ctx))
	require.NoError(t, w.ProcessNext(ctx))
	assert.Equal(t, 1, q.Len(), "only toko may remain queued")
	assert.Equal(t, int32(0), backfills.Load())

	require.NoError(t, w.ProcessNext(ctx))
	require.Equal(t, 1, q.Len())
	require.NoError(t, w.ProcessNext(ctx))
	assert.Equal(t, int32(1), backfills.Load())
}

func TestMemoryQueueEnqueueDoesNotBlockWhenBacklogged(t *testing.T) {
	q := newTestQueue()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const backlog = 5000
	for i := 1; i <= backlog; i++ {
		require.NoError(t, q.Enqueue(ctx, SyncDomain(int64(i), "")))
	}
	assert.Equal(t, backlog, q.Len())

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "domain:1", first.Item.Subject())
	assert.Equal(t, backlog-1, q.Len())
}

func TestMemoryQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	got := make(chan *Delivery, 1)
	go func() {
		d, _ := q.Dequeue(ctx)
		got <- d
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, SyncRdaps("")))

	select {
	case d := <-got:
		require.NotNil(t, d)
		assert.Equal(t, KindSyncRdaps, d.Item.Kind)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	q := newTestQueue()
	processed := make(chan struct{}, 1)
	w := newTestWorker(q, NewMemoryBatches(), Handlers{
		KindSyncRdaps: func(ctx context.Context, item WorkItem) error {
			processed <- struct{}{}
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunForever(ctx)
	}()

	require.NoError(t, q.Enqueue(ctx, SyncRdaps("")))
	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("item was not processed")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

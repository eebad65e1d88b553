package queue

import (
	"context"
	"sync"
	"time"
)

// Enqueuer is the producer side used by the API, the scheduler and handlers.
type Enqueuer interface {
	Enqueue(ctx context.Context, items ...WorkItem) error
}

// Queue is the consumer side used by the worker.
type Queue interface {
	Enqueuer
	// Dequeue waits up to the poll timeout for the next item and returns ErrNoItem when
	// none arrived.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Ack removes a processed delivery from the in-flight set.
	Ack(ctx context.Context, d *Delivery) error
}

// Delivery is a dequeued item together with the queue's handle on it.
type Delivery struct {
	Item WorkItem
	raw  string
}

// Batches counts down a group of items and hands back the follow-up item once every member
// has finished.
type Batches interface {
	Open(ctx context.Context, batchID string, size int, then WorkItem) error
	// Done marks member memberID finished. Repeats of a member are ignored. ok is true
	// exactly once per batch, for the last distinct member.
	Done(ctx context.Context, batchID, memberID string) (then WorkItem, ok bool, err error)
}

const defaultPollTimeout = 5 * time.Second

// MemoryQueue keeps items in process. Used when Redis is not configured and in tests.
// Enqueue never blocks, so a handler can fan out onto the queue its own worker drains.
type MemoryQueue struct {
	mu          sync.Mutex
	items       []WorkItem
	ready       chan struct{}
	pollTimeout time.Duration
	now         func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		ready:       make(chan struct{}, 1),
		pollTimeout: defaultPollTimeout,
		now:         time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, items ...WorkItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	q.mu.Lock()
	for _, item := range items {
		q.items = append(q.items, stamp(item, q.now()))
	}
	q.mu.Unlock()
	if len(items) > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return nil
}

func (q *MemoryQueue) pop() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return WorkItem{}, false
	}
	item := q.items[0]
	q.items[0] = WorkItem{}
	q.items = q.items[1:]
	if len(q.items) > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return item, true
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	timer := time.NewTimer(q.pollTimeout)
	defer timer.Stop()
	for {
		if item, ok := q.pop(); ok {
			return &Delivery{Item: item}, nil
		}
		select {
		case <-q.ready:
		case <-timer.C:
			return nil, ErrNoItem
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *MemoryQueue) Ack(context.Context, *Delivery) error { return nil }

// Len reports how many items are waiting.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type memoryBatch struct {
	pending int
	then    WorkItem
	done    map[string]struct{}
}

type MemoryBatches struct {
	mu      sync.Mutex
	batches map[string]*memoryBatch
}

func NewMemoryBatches() *MemoryBatches {
	return &MemoryBatches{batches: map[string]*memoryBatch{}}
}

func (b *MemoryBatches) Open(_ context.Context, batchID string, size int, then WorkItem) error {
	if batchID == "" || size <= 0 {
		return ErrInvalidItem
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches[batchID] = &memoryBatch{pending: size, then: then, done: map[string]struct{}{}}
	return nil
}

func (b *MemoryBatches) Done(_ context.Context, batchID, memberID string) (WorkItem, bool, error) {
	if batchID == "" || memberID == "" {
		return WorkItem{}, false, ErrInvalidItem
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	batch, ok := b.batches[batchID]
	if !ok {
		return WorkItem{}, false, nil
	}
	if _, seen := batch.done[memberID]; seen {
		return WorkItem{}, false, nil
	}
	batch.done[memberID] = struct{}{}
	batch.pending--
	if batch.pending > 0 {
		return WorkItem{}, false, nil
	}
	delete(b.batches, batchID)
	return batch.then, true, nil
}

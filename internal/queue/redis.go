package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const batchTTL = 24 * time.Hour

// RedisQueue is a reliable list queue: items move atomically from the pending list to a
// processing list on dequeue and are removed from it on ack. Items left in the processing
// list by a crashed worker are pushed back by Recover.
type RedisQueue struct {
	client      *redis.Client
	pending     string
	processing  string
	pollTimeout time.Duration
	now         func() time.Time
}

func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{
		client:      client,
		pending:     name,
		processing:  name + ":processing",
		pollTimeout: defaultPollTimeout,
		now:         time.Now,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, items ...WorkItem) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		payload, err := json.Marshal(stamp(item, q.now()))
		if err != nil {
			return err
		}
		values = append(values, string(payload))
	}
	return q.client.LPush(ctx, q.pending, values...).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	raw, err := q.client.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", q.pollTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoItem
		}
		return nil, err
	}
	var item WorkItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		// Poison message; drop it so it does not block the list.
		_ = q.client.LRem(ctx, q.processing, 1, raw).Err()
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return &Delivery{Item: item, raw: raw}, nil
}

func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if d == nil || d.raw == "" {
		return nil
	}
	return q.client.LRem(ctx, q.processing, 1, d.raw).Err()
}

// Recover moves every in-flight item back to the pending list and returns how many moved.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// batchDoneScript records a member once and counts the batch down. It returns the
// follow-up payload for the last member and nil otherwise, including for repeats and
// for batches that already completed.
var batchDoneScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
if redis.call("SADD", KEYS[2], ARGV[1]) == 0 then
  return false
end
redis.call("EXPIRE", KEYS[2], ARGV[2])
local left = redis.call("HINCRBY", KEYS[1], "pending", -1)
if left > 0 then
  return false
end
local followup = redis.call("HGET", KEYS[1], "then")
redis.call("DEL", KEYS[1], KEYS[2])
return followup
`)

// RedisBatches keeps batch counters in hashes so every worker process shares them. Finished
// members are tracked in a companion set so a redelivered member is counted once.
type RedisBatches struct {
	client *redis.Client
	prefix string
}

func NewRedisBatches(client *redis.Client, name string) *RedisBatches {
	return &RedisBatches{client: client, prefix: name + ":batch:"}
}

func (b *RedisBatches) keys(batchID string) (string, string) {
	key := b.prefix + batchID
	return key, key + ":done"
}

func (b *RedisBatches) Open(ctx context.Context, batchID string, size int, then WorkItem) error {
	if batchID == "" || size <= 0 {
		return ErrInvalidItem
	}
	payload, err := json.Marshal(then)
	if err != nil {
		return err
	}
	key, doneKey := b.keys(batchID)
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, doneKey)
		pipe.HSet(ctx, key, "pending", size, "then", string(payload))
		pipe.Expire(ctx, key, batchTTL)
		return nil
	})
	return err
}

func (b *RedisBatches) Done(ctx context.Context, batchID, memberID string) (WorkItem, bool, error) {
	if batchID == "" || memberID == "" {
		return WorkItem{}, false, ErrInvalidItem
	}
	key, doneKey := b.keys(batchID)
	raw, err := batchDoneScript.Run(ctx, b.client, []string{key, doneKey},
		memberID, int(batchTTL/time.Second)).Text()
	if errors.Is(err, redis.Nil) {
		return WorkItem{}, false, nil
	}
	if err != nil {
		return WorkItem{}, false, err
	}
	var then WorkItem
	if err := json.Unmarshal([]byte(raw), &then); err != nil {
		return WorkItem{}, false, err
	}
	return then, true, nil
}

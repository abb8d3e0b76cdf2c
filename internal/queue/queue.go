package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Trigger asks the sweeper for one run. Source names whoever enqueued it,
// for the run log only.
type Trigger struct {
	Source string
}

// Queue delivers sweep triggers from an external scheduler to the sweeper.
type Queue interface {
	Publish(ctx context.Context, t Trigger) error
	Consume(ctx context.Context) (<-chan Trigger, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Trigger
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Trigger, size)}
}

// Publish enqueues a trigger.
func (q *InMemory) Publish(ctx context.Context, t Trigger) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for the sweeper.
func (q *InMemory) Consume(ctx context.Context) (<-chan Trigger, error) {
	out := make(chan Trigger)
	go func() {
		defer close(out)
		for {
			select {
			case t := <-q.ch:
				out <- t
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue so a cron job outside
// the process can enqueue runs with a plain LPUSH.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "absensi:sweeps"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a trigger.
func (q *RedisQueue) Publish(ctx context.Context, t Trigger) error {
	return q.client.LPush(ctx, q.key, t.Source).Err()
}

// Consume streams triggers using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Trigger, error) {
	out := make(chan Trigger)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				out <- Trigger{Source: res[1]}
			}
		}
	}()
	return out, nil
}

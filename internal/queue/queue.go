package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pendingKey = "taskrupee:jobs:pending"
	delayedKey = "taskrupee:jobs:delayed"
)

// RedisQueue is a redis-backed job queue. Ready jobs live in a list; delayed
// jobs wait in a sorted set scored by their due time.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue on an existing redis client
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Enqueue pushes a job for immediate processing
func (q *RedisQueue) Enqueue(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	return q.client.LPush(context.Background(), pendingKey, data).Err()
}

// EnqueueIn schedules a job to become ready after the given delay
func (q *RedisQueue) EnqueueIn(delay time.Duration, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	score := float64(time.Now().Add(delay).UnixMilli())
	return q.client.ZAdd(context.Background(), delayedKey, &redis.Z{Score: score, Member: data}).Err()
}

// Dequeue blocks up to timeout waiting for a ready job. Due delayed jobs are
// promoted first. Returns nil when nothing is ready.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	result, err := q.client.BRPop(ctx, timeout, pendingKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	return &job, nil
}

// promoteDue moves delayed jobs whose time has come onto the pending list
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("reading delayed jobs: %w", err)
	}

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return err
		}
		// Another worker may have promoted this job already
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, pendingKey, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKey = "jobs:queue"

// popBlock bounds each blocking read so context cancellation gets a
// prompt reaction without busy-polling.
const popBlock = 5 * time.Second

// Connect builds a Redis client from a URL and verifies the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rdb, nil
}

// RedisQueue is the jobs:queue list. Push is LPUSH, Pop is BRPOP, so
// ordering is FIFO and each entry reaches exactly one consumer.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Push(ctx context.Context, jobID, prompt string) error {
	data, err := json.Marshal(Entry{JobID: jobID, Prompt: prompt})
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, queueKey, data).Err()
}

func (q *RedisQueue) Pop(ctx context.Context) (Entry, error) {
	for {
		res, err := q.rdb.BRPop(ctx, popBlock, queueKey).Result()
		if err == redis.Nil {
			if ctx.Err() != nil {
				return Entry{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return Entry{}, err
		}

		// BRPOP returns [key, value].
		raw := res[1]
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return e, nil
	}
}

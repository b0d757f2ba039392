package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

const indexKey = "jobs:index"

func jobKey(id string) string {
	return "jobs:" + id
}

// RedisStore keeps each job in a hash at jobs:{id} and the submission
// index in the jobs:index sorted set.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Put(ctx context.Context, j job.Job) error {
	return s.rdb.HSet(ctx, jobKey(j.ID), encode(j)).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (job.Job, error) {
	data, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return job.Job{}, err
	}
	if len(data) == 0 {
		return job.Job{}, ErrNotFound
	}
	return decode(id, data), nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fields map[string]string) error {
	exists, err := s.rdb.Exists(ctx, jobKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	data := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		data[k] = v
	}
	return s.rdb.HSet(ctx, jobKey(id), data).Err()
}

func (s *RedisStore) IndexAdd(ctx context.Context, id string, at time.Time) error {
	return s.rdb.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(at.UnixNano()) / float64(time.Second),
		Member: id,
	}).Err()
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]job.Job, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]job.Job, 0, len(ids))
	for _, id := range ids {
		data, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
		if err != nil {
			return nil, err
		}
		// Index entries may outlive a record lost to an external
		// expiry; skip them rather than fail the listing.
		if len(data) == 0 {
			continue
		}
		jobs = append(jobs, decode(id, data))
	}
	return jobs, nil
}

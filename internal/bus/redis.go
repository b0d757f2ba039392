package bus

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

func channelKey(jobID string) string {
	return "jobs:" + jobID + ":events"
}

// RedisBus publishes events on the jobs:{id}:events pub/sub channel.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, jobID string, ev job.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelKey(jobID), data).Err()
}

// Subscribe returns once the subscription is confirmed active, so a caller
// that reads the store afterwards cannot miss events published in between.
func (b *RedisBus) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, channelKey(jobID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSub{ps: ps, events: make(chan job.Event), done: make(chan struct{})}
	go sub.pump()
	return sub, nil
}

type redisSub struct {
	ps     *redis.PubSub
	events chan job.Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSub) pump() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev job.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("[bus] dropping undecodable event: %v", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *redisSub) Events() <-chan job.Event {
	return s.events
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

package bus

import (
	"context"
	"sync"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

// MemoryBus is an in-process Bus used by tests and local runs without
// Redis. Publish never blocks: a subscriber that falls more than subBuffer
// events behind loses the overflow, matching the best-effort contract.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string][]*memorySub
}

const subBuffer = 64

func NewMemory() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memorySub)}
}

func (b *MemoryBus) Publish(ctx context.Context, jobID string, ev job.Event) error {
	// The lock also orders Publish against Close so nothing is ever sent
	// on a closed subscriber channel. Sends are non-blocking so holding
	// it through the fan-out is safe.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs[jobID] {
		select {
		case s.events <- ev:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	s := &memorySub{bus: b, jobID: jobID, events: make(chan job.Event, subBuffer)}
	b.mu.Lock()
	b.subs[jobID] = append(b.subs[jobID], s)
	b.mu.Unlock()
	return s, nil
}

type memorySub struct {
	bus    *MemoryBus
	jobID  string
	events chan job.Event
	once   sync.Once
}

func (s *memorySub) Events() <-chan job.Event {
	return s.events
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		b := s.bus
		b.mu.Lock()
		subs := b.subs[s.jobID]
		for i, other := range subs {
			if other == s {
				b.subs[s.jobID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(s.events)
	})
	return nil
}

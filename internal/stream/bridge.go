// Package stream turns a job's bus events into the single ordered sequence
// one client consumes: a synthesized current-status event up front, live
// events after, heartbeats while idle, closed on a terminal status.
package stream

import (
	"context"
	"time"

	"github.com/jeffkershner/subconscious-demo/internal/bus"
	"github.com/jeffkershner/subconscious-demo/internal/job"
	"github.com/jeffkershner/subconscious-demo/internal/store"
)

type Bridge struct {
	store     store.Store
	bus       bus.Bus
	heartbeat time.Duration
	poll      time.Duration
}

func New(s store.Store, b bus.Bus, heartbeat, poll time.Duration) *Bridge {
	return &Bridge{store: s, bus: b, heartbeat: heartbeat, poll: poll}
}

// Open starts the event sequence for one client. It returns
// store.ErrNotFound (with no stream started) for an unknown job. The
// returned channel closes after a terminal status event or when ctx ends;
// the bus subscription is released on every exit path.
//
// The subscription is taken before the store read, so an event published
// between the two is delivered rather than lost; the worst case is a
// duplicate status snapshot, which is harmless.
func (br *Bridge) Open(ctx context.Context, jobID string) (<-chan job.Event, error) {
	sub, err := br.bus.Subscribe(ctx, jobID)
	if err != nil {
		return nil, err
	}

	current, err := br.store.Get(ctx, jobID)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan job.Event)
	go br.run(ctx, jobID, current, sub, out)
	return out, nil
}

func (br *Bridge) run(ctx context.Context, jobID string, current job.Job, sub bus.Subscription, out chan<- job.Event) {
	defer close(out)
	defer sub.Close()

	lastSent := time.Now()
	send := func(ev job.Event) bool {
		select {
		case out <- ev:
			lastSent = time.Now()
			return true
		case <-ctx.Done():
			return false
		}
	}

	// A client joining mid-flight starts from the job's current state.
	if !send(job.NewStatusEvent(current.Status, current.EstimatedWaitSeconds)) {
		return
	}
	if current.Status.Terminal() {
		return
	}

	ticker := time.NewTicker(br.poll)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !send(ev) {
				return
			}
			if p, ok := job.StatusOf(ev); ok && p.Status.Terminal() {
				return
			}

		case <-ticker.C:
			// A terminal status reached without a bus event still
			// ends the stream, with a synthesized final event.
			j, err := br.store.Get(ctx, jobID)
			if err == nil && j.Status.Terminal() {
				send(job.NewStatusEvent(j.Status, nil))
				return
			}
			if time.Since(lastSent) >= br.heartbeat {
				if !send(job.NewHeartbeatEvent()) {
					return
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

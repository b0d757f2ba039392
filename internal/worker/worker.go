// Package worker drives claimed jobs through the status lifecycle:
// queued -> warming -> running -> complete, or -> error on any fault.
// Each transition persists to the store first and then publishes the
// matching status event, so a store reader is never behind a subscriber.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/jeffkershner/subconscious-demo/internal/bus"
	"github.com/jeffkershner/subconscious-demo/internal/job"
	"github.com/jeffkershner/subconscious-demo/internal/queue"
	"github.com/jeffkershner/subconscious-demo/internal/store"
)

// Options tunes the worker's pacing. The pauses simulate inference timing
// and may all be zero.
type Options struct {
	QueuedWaitSeconds  int
	WarmingWaitSeconds int
	ClaimDelay         time.Duration
	WarmupMin          time.Duration
	WarmupMax          time.Duration
	StepDelayMin       time.Duration
	StepDelayMax       time.Duration
	ReconnectBackoff   time.Duration
}

// DefaultOptions carries the demo pacing used in deployment.
func DefaultOptions() Options {
	return Options{
		QueuedWaitSeconds:  30,
		WarmingWaitSeconds: 25,
		ClaimDelay:         2 * time.Second,
		WarmupMin:          3 * time.Second,
		WarmupMax:          5 * time.Second,
		StepDelayMin:       300 * time.Millisecond,
		StepDelayMax:       800 * time.Millisecond,
		ReconnectBackoff:   5 * time.Second,
	}
}

// Worker consumes the job queue sequentially, one job fully processed
// before the next claim. All collaborators are injected; nothing here
// touches Redis directly.
type Worker struct {
	store store.Store
	bus   bus.Bus
	queue queue.Queue
	steps StepSource
	opts  Options
}

func New(s store.Store, b bus.Bus, q queue.Queue, steps StepSource, opts Options) *Worker {
	return &Worker{store: s, bus: b, queue: q, steps: steps, opts: opts}
}

// Run blocks on the queue until ctx is cancelled. Queue connectivity
// faults are retried with a fixed backoff; malformed entries are logged
// and dropped; a fault inside one job never stops the loop.
func (w *Worker) Run(ctx context.Context) error {
	log.Println("[worker] waiting for jobs")
	for {
		entry, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrMalformed) {
				log.Printf("[worker] %v", err)
				continue
			}
			log.Printf("[worker] queue error: %v, retrying in %s", err, w.opts.ReconnectBackoff)
			sleep(ctx, w.opts.ReconnectBackoff)
			continue
		}
		w.process(ctx, entry)
	}
}

// process drives one job to a terminal status. It never returns a
// non-terminal job: any error or panic lands in status error.
func (w *Worker) process(ctx context.Context, entry queue.Entry) {
	jobID := entry.JobID
	log.Printf("[worker] processing job %s", jobID)

	defer func() {
		if r := recover(); r != nil {
			w.fail(ctx, jobID, fmt.Sprintf("panic while processing job: %v", r))
		}
	}()

	if err := w.transition(ctx, jobID, job.StatusQueued, &w.opts.QueuedWaitSeconds, ""); err != nil {
		log.Printf("[worker] job %s: %v", jobID, err)
		return
	}
	sleep(ctx, w.opts.ClaimDelay)

	if err := w.transition(ctx, jobID, job.StatusWarming, &w.opts.WarmingWaitSeconds, ""); err != nil {
		log.Printf("[worker] job %s: %v", jobID, err)
		return
	}
	sleep(ctx, between(w.opts.WarmupMin, w.opts.WarmupMax))

	if err := w.transition(ctx, jobID, job.StatusRunning, nil, ""); err != nil {
		log.Printf("[worker] job %s: %v", jobID, err)
		return
	}

	steps := w.steps.Steps(entry.Prompt)
	for {
		node, err := steps.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.fail(ctx, jobID, err.Error())
			return
		}
		if err := w.bus.Publish(ctx, jobID, job.NewNodeEvent(node)); err != nil {
			log.Printf("[worker] job %s: publish node: %v", jobID, err)
		}
		sleep(ctx, between(w.opts.StepDelayMin, w.opts.StepDelayMax))
	}

	if err := w.transition(ctx, jobID, job.StatusComplete, nil, ""); err != nil {
		log.Printf("[worker] job %s: %v", jobID, err)
		return
	}
	log.Printf("[worker] completed job %s", jobID)
}

// transition records a status change: store update first, then the status
// event. estimatedWait may be nil; errMsg is only set on failure.
func (w *Worker) transition(ctx context.Context, jobID string, status job.Status, estimatedWait *int, errMsg string) error {
	if err := w.store.Update(ctx, jobID, store.StatusFields(status, estimatedWait, errMsg)); err != nil {
		return fmt.Errorf("update status %s: %w", status, err)
	}
	if err := w.bus.Publish(ctx, jobID, job.NewStatusEvent(status, estimatedWait)); err != nil {
		return fmt.Errorf("publish status %s: %w", status, err)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, jobID, msg string) {
	log.Printf("[worker] job %s failed: %s", jobID, msg)
	if err := w.transition(ctx, jobID, job.StatusError, nil, msg); err != nil {
		log.Printf("[worker] job %s: recording failure: %v", jobID, err)
	}
}

// between picks a random duration in [min, max].
func between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

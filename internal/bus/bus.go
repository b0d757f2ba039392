// Package bus carries ephemeral per-job progress events between the worker
// and any number of stream subscribers. Delivery is best-effort and
// history-free: a subscriber only sees events published after it joins.
package bus

import (
	"context"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

// Subscription is a live feed of one job's events. Events is closed when
// the subscription is torn down. Close is idempotent and must run on every
// exit path of the consumer.
type Subscription interface {
	Events() <-chan job.Event
	Close() error
}

// Bus fans published events out to all current subscribers of a job.
type Bus interface {
	Publish(ctx context.Context, jobID string, ev job.Event) error
	Subscribe(ctx context.Context, jobID string) (Subscription, error)
}

package queue

import (
	"context"
	"errors"
)

// ErrMalformed wraps a queue entry whose payload could not be decoded.
// Consumers log and drop these; they are never fatal to the worker loop.
var ErrMalformed = errors.New("malformed queue entry")

// Entry is the hand-off record moving a job from submission to a worker.
// It is not persisted beyond delivery.
type Entry struct {
	JobID  string `json:"job_id"`
	Prompt string `json:"prompt"`
}

// Queue is the FIFO hand-off channel between the submission path and the
// worker. Pop blocks until an entry is available and delivers it to exactly
// one caller.
type Queue interface {
	Push(ctx context.Context, jobID, prompt string) error
	Pop(ctx context.Context) (Entry, error)
}

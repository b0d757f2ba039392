package queue

import "context"

// MemoryQueue is an in-process Queue used by tests and local runs without
// Redis. Capacity is fixed; Push blocks once the buffer fills.
type MemoryQueue struct {
	entries chan Entry
}

func NewMemory() *MemoryQueue {
	return &MemoryQueue{entries: make(chan Entry, 256)}
}

func (q *MemoryQueue) Push(ctx context.Context, jobID, prompt string) error {
	select {
	case q.entries <- Entry{JobID: jobID, Prompt: prompt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (Entry, error) {
	select {
	case e := <-q.entries:
		return e, nil
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	}
}

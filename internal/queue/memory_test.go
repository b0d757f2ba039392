package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffkershner/subconscious-demo/internal/queue"
)

func TestMemoryFIFO(t *testing.T) {
	q := queue.NewMemory()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "j-1", "first"))
	require.NoError(t, q.Push(ctx, "j-2", "second"))

	e, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Entry{JobID: "j-1", Prompt: "first"}, e)

	e, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Entry{JobID: "j-2", Prompt: "second"}, e)
}

func TestMemoryPopBlocksUntilPush(t *testing.T) {
	q := queue.NewMemory()
	ctx := context.Background()

	done := make(chan queue.Entry, 1)
	go func() {
		e, err := q.Pop(ctx)
		if err == nil {
			done <- e
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(ctx, "j-1", "late"))

	select {
	case e := <-done:
		assert.Equal(t, "j-1", e.JobID)
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock after push")
	}
}

func TestMemoryPopHonorsCancel(t *testing.T) {
	q := queue.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		errs <- err
	}()

	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pop did not observe cancellation")
	}
}

func TestMemoryDeliversToExactlyOneConsumer(t *testing.T) {
	q := queue.NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan queue.Entry, 2)
	for i := 0; i < 2; i++ {
		go func() {
			if e, err := q.Pop(ctx); err == nil {
				got <- e
			}
		}()
	}

	require.NoError(t, q.Push(ctx, "j-1", "only"))

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("entry was never delivered")
	}

	select {
	case e := <-got:
		t.Fatalf("entry delivered twice: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

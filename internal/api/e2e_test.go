package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffkershner/subconscious-demo/internal/job"
	"github.com/jeffkershner/subconscious-demo/internal/worker"
)

// startWorker runs a zero-delay worker against the fixture's backends.
func startWorker(t *testing.T, f *fixture, src worker.StepSource) {
	t.Helper()
	if src == nil {
		src = worker.NewPlanSource(worker.DefaultPlan())
	}
	w := worker.New(f.store, f.bus, f.queue, src, worker.Options{
		QueuedWaitSeconds:  30,
		WarmingWaitSeconds: 25,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
}

func (f *fixture) submit(t *testing.T, prompt string) string {
	t.Helper()
	resp := f.postJSON(t, "/jobs", `{"prompt":"`+prompt+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, resp, &created)
	return created.JobID
}

func (f *fixture) getJob(t *testing.T, id string) job.Job {
	t.Helper()
	resp := f.get(t, "/jobs/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var j job.Job
	decodeBody(t, resp, &j)
	return j
}

func (f *fixture) waitTerminal(t *testing.T, id string) job.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j := f.getJob(t, id)
		if j.Status.Terminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return job.Job{}
}

func TestEndToEndSuccess(t *testing.T) {
	f := newFixture(t)

	id := f.submit(t, "summarize X")
	assert.Equal(t, job.StatusQueued, f.getJob(t, id).Status)

	startWorker(t, f, nil)

	final := f.waitTerminal(t, id)
	assert.Equal(t, job.StatusComplete, final.Status)
	assert.Empty(t, final.Error)
}

type alwaysFailSource struct{}

func (alwaysFailSource) Steps(prompt string) worker.Steps { return alwaysFailSteps{} }

type alwaysFailSteps struct{}

func (alwaysFailSteps) Next() (job.Node, error) {
	return job.Node{}, errors.New("forced fault")
}

func TestEndToEndForcedFaultThenRecovery(t *testing.T) {
	f := newFixture(t)

	// the failing source only triggers for one prompt
	src := &promptSwitchSource{
		trigger:  "explode",
		onMatch:  alwaysFailSource{},
		fallback: worker.NewPlanSource(worker.DefaultPlan()),
	}

	badID := f.submit(t, "explode")
	goodID := f.submit(t, "behave")

	startWorker(t, f, src)

	bad := f.waitTerminal(t, badID)
	assert.Equal(t, job.StatusError, bad.Status)
	assert.Equal(t, "forced fault", bad.Error)

	// the worker moved on to the next queued job
	good := f.waitTerminal(t, goodID)
	assert.Equal(t, job.StatusComplete, good.Status)
	assert.Empty(t, good.Error)
}

type promptSwitchSource struct {
	trigger  string
	onMatch  worker.StepSource
	fallback worker.StepSource
}

func (s *promptSwitchSource) Steps(prompt string) worker.Steps {
	if prompt == s.trigger {
		return s.onMatch.Steps(prompt)
	}
	return s.fallback.Steps(prompt)
}

func TestEndToEndStreamObservesFullLifecycle(t *testing.T) {
	f := newFixture(t)

	id := f.submit(t, "summarize X")

	done := make(chan []job.Event, 1)
	go func() {
		resp := f.get(t, "/jobs/"+id+"/stream")
		done <- readSSE(t, resp)
	}()
	time.Sleep(50 * time.Millisecond)

	startWorker(t, f, nil)

	var events []job.Event
	select {
	case events = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream never terminated")
	}

	var statuses []job.Status
	nodes := 0
	for _, ev := range events {
		switch ev.Type {
		case job.EventStatus:
			p, ok := job.StatusOf(ev)
			require.True(t, ok)
			// no regression: each status is at least as advanced
			if len(statuses) > 0 {
				assert.False(t, p.Status.Before(statuses[len(statuses)-1]),
					"status regressed from %s to %s", statuses[len(statuses)-1], p.Status)
			}
			if len(statuses) == 0 || statuses[len(statuses)-1] != p.Status {
				statuses = append(statuses, p.Status)
			}
		case job.EventNode:
			var p job.NodePayload
			require.NoError(t, json.Unmarshal(ev.Payload, &p))
			nodes++
		}
	}

	assert.Equal(t, []job.Status{job.StatusQueued, job.StatusWarming, job.StatusRunning, job.StatusComplete}, statuses)
	assert.Equal(t, 9, nodes)
}

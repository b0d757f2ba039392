package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jeffkershner/subconscious-demo/internal/job"
)

// ErrNotFound is returned by Get and Update for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Hash field names of a persisted job record. All values are stored as
// text; optional fields are absent when unset.
const (
	FieldID            = "id"
	FieldPrompt        = "prompt"
	FieldStatus        = "status"
	FieldEstimatedWait = "estimated_wait_seconds"
	FieldCreatedAt     = "created_at"
	FieldError         = "error"
)

// Store persists job records and the submission-ordered index. Put creates
// or overwrites a record; Update merges the given fields into an existing
// record atomically (exactly one worker writes a job post-dequeue, so no
// further locking is layered on top). IndexAdd registers a job for Recent,
// which returns up to limit jobs newest-first.
type Store interface {
	Put(ctx context.Context, j job.Job) error
	Get(ctx context.Context, id string) (job.Job, error)
	Update(ctx context.Context, id string, fields map[string]string) error
	IndexAdd(ctx context.Context, id string, at time.Time) error
	Recent(ctx context.Context, limit int) ([]job.Job, error)
}

// StatusFields builds the field map for a status transition. estimatedWait
// may be nil; errMsg is only written for terminal failures.
func StatusFields(status job.Status, estimatedWait *int, errMsg string) map[string]string {
	fields := map[string]string{FieldStatus: string(status)}
	if estimatedWait != nil {
		fields[FieldEstimatedWait] = strconv.Itoa(*estimatedWait)
	}
	if errMsg != "" {
		fields[FieldError] = errMsg
	}
	return fields
}

// encode flattens a job into its stored field map.
func encode(j job.Job) map[string]string {
	m := map[string]string{
		FieldID:        j.ID,
		FieldPrompt:    j.Prompt,
		FieldStatus:    string(j.Status),
		FieldCreatedAt: j.CreatedAt,
	}
	if j.EstimatedWaitSeconds != nil {
		m[FieldEstimatedWait] = strconv.Itoa(*j.EstimatedWaitSeconds)
	}
	if j.Error != "" {
		m[FieldError] = j.Error
	}
	return m
}

// decode rebuilds a job from its stored field map. id is the fallback when
// the record predates the id field.
func decode(id string, m map[string]string) job.Job {
	j := job.Job{
		ID:        m[FieldID],
		Prompt:    m[FieldPrompt],
		Status:    job.Status(m[FieldStatus]),
		CreatedAt: m[FieldCreatedAt],
		Error:     m[FieldError],
	}
	if j.ID == "" {
		j.ID = id
	}
	if v := m[FieldEstimatedWait]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			j.EstimatedWaitSeconds = &n
		}
	}
	return j
}

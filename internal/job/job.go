package job

import "time"

// Status is the lifecycle phase of a job. Transitions only move forward:
// queued -> warming -> running -> complete | error.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusWarming  Status = "warming"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether no further transitions or events follow.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// rank orders statuses along the state machine. Unknown statuses rank
// lowest so a corrupt record never masks a forward transition.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 1
	case StatusWarming:
		return 2
	case StatusRunning:
		return 3
	case StatusComplete, StatusError:
		return 4
	}
	return 0
}

// Before reports whether s is an earlier phase than other.
func (s Status) Before(other Status) bool {
	return s.rank() < other.rank()
}

// Job is the durable record kept per submission.
type Job struct {
	ID                   string `json:"id"`
	Prompt               string `json:"prompt"`
	Status               Status `json:"status"`
	EstimatedWaitSeconds *int   `json:"estimated_wait_seconds,omitempty"`
	CreatedAt            string `json:"created_at,omitempty"`
	Error                string `json:"error,omitempty"`
}

// New returns a freshly queued job with the given id and prompt.
func New(id, prompt string, estimatedWait int) Job {
	return Job{
		ID:                   id,
		Prompt:               prompt,
		Status:               StatusQueued,
		EstimatedWaitSeconds: &estimatedWait,
		CreatedAt:            time.Now().UTC().Format(time.RFC3339),
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type JobStatus string

const (
	StatusPending JobStatus = ""
	StatusDone    JobStatus = "done"
	StatusDead    JobStatus = "dead"
)

// Jobs attempted after shutdown began are retried after this delay.
const minRetryBackoff = 5 * time.Second

var (
	ErrInvalidJob        = errors.New("job is not valid")
	ErrInvalidJobHandler = errors.New("job handler is not valid")
)

// Defaults applied to JobOptions left unset.
var (
	DefaultMaxAttempts                     = 3
	DefaultTimeout                         = 30 * time.Second
	DefaultBackoffStrategy BackoffStrategy = DefaultExponentialBackoff
)

type JobSpec struct {
	Type    string    `json:"type"`
	Payload []byte    `json:"payload,omitempty"`
	RunAt   time.Time `json:"run_at"`
}

// Job is a JobSpec plus the state of its execution.
type Job struct {
	ID ulid.ULID `json:"id"`
	JobSpec

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AttemptsDone  int       `json:"attempts_done"`
	Status        JobStatus `json:"status,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// NewJob assigns an ID to spec. A zero RunAt means the job is ready now.
func NewJob(spec JobSpec) (Job, error) {
	spec.Type = strings.ToLower(strings.TrimSpace(spec.Type))
	if spec.Type == "" {
		return Job{}, fmt.Errorf("%w: job type must be set", ErrInvalidJob)
	}

	now := time.Now()
	if spec.RunAt.IsZero() {
		spec.RunAt = now
	}
	return Job{
		ID:        ulid.Make(),
		JobSpec:   spec,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Attempt runs h on the job and records the outcome on j. A panic or a
// non-retryable error kills the job; a RetryableError reschedules it
// until MaxAttempts is reached.
func (j *Job) Attempt(baseCtx context.Context, now time.Time, h JobHandler) {
	defer func() {
		if v := recover(); v != nil {
			j.LastError = fmt.Sprintf("panic: %v", v)
			j.Status = StatusDead
		}

		j.AttemptsDone++
		j.LastAttemptAt = now
		j.UpdatedAt = now
	}()

	if err := baseCtx.Err(); err != nil {
		j.RunAt = now.Add(minRetryBackoff)
		j.LastError = fmt.Sprintf("canceled: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(baseCtx, h.JobOpts.Timeout)
	defer cancel()

	err := h.Handle(ctx, j.JobSpec)
	if err == nil {
		j.Status = StatusDone
		return
	}

	j.LastError = err.Error()
	var re *RetryableError
	if errors.As(err, &re) && j.AttemptsDone+1 < h.JobOpts.MaxAttempts {
		j.RunAt = now.Add(h.JobOpts.Backoff(j.AttemptsDone + 1))
		return
	}
	j.Status = StatusDead
}

// JobFunc handles one job. Returning a RetryableError asks for another
// attempt.
type JobFunc func(context.Context, JobSpec) error

type JobHandler struct {
	Handle  JobFunc
	JobOpts JobOptions
}

type JobOptions struct {
	MaxAttempts int
	Timeout     time.Duration
	BackoffStrategy
}

// Sanitize fills unset options with the defaults.
func (h *JobHandler) Sanitize() error {
	if h.Handle == nil {
		return fmt.Errorf("sanitize job handler: %w: handle function must be set", ErrInvalidJobHandler)
	}
	if h.JobOpts.MaxAttempts <= 0 {
		h.JobOpts.MaxAttempts = DefaultMaxAttempts
	}
	if h.JobOpts.Timeout <= 0 {
		h.JobOpts.Timeout = DefaultTimeout
	}
	if h.JobOpts.BackoffStrategy == nil {
		h.JobOpts.BackoffStrategy = DefaultBackoffStrategy
	}
	return nil
}

// Package generation submits image jobs to hosted models and waits for them.
package generation

import (
	"context"
	"errors"
	"fmt"
)

type JobStatus string

const (
	StatusStarting   JobStatus = "starting"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
	StatusCanceled   JobStatus = "canceled"
)

// Job is the local view of a provider-owned prediction.
type Job struct {
	ID     string
	Status JobStatus
	Output []string
	Error  string
}

func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Request is what every strategy receives. Strategies pick the prompt they need.
type Request struct {
	ImageURL     string
	Prompt       string
	SimplePrompt string
}

// Strategy is one way of producing an image: a provider model or the demo mode.
type Strategy interface {
	Name() string
	Submit(ctx context.Context, req Request) (string, error)
	Status(ctx context.Context, jobID string) (*Job, error)
}

// ErrTimeout is returned when a job is still pending after the last poll.
// The remote job is left running.
var ErrTimeout = errors.New("generation timed out")

// JobFailedError carries the provider's error text for a failed job.
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
}

// SubmitError wraps the last submission failure of a chain.
type SubmitError struct {
	Strategy string
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("failed to submit to %s: %v", e.Strategy, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

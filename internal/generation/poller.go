package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/replicate"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 60
)

// Poller waits for a job by counting status checks, not by wall clock.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      logrus.FieldLogger
}

func NewPoller(interval time.Duration, maxAttempts int, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPolls
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, Logger: log}
}

// Wait polls the job until it reaches a terminal state or MaxAttempts checks
// have been made. A succeeded job without output counts as failed. A status
// check that fails with a transport error or a 5xx uses up an attempt like a
// pending job does.
func (p *Poller) Wait(ctx context.Context, s Strategy, jobID string) (*Job, error) {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		job, err := s.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !transient(err) {
				return nil, fmt.Errorf("failed to get job status: %w", err)
			}
			if p.Logger != nil {
				p.Logger.WithError(err).WithFields(logrus.Fields{
					"job_id":   jobID,
					"strategy": s.Name(),
					"attempt":  attempt,
				}).Warn("job status check failed")
			}
			job = &Job{ID: jobID, Status: StatusProcessing}
		}

		if p.Logger != nil {
			p.Logger.WithFields(logrus.Fields{
				"job_id":   jobID,
				"strategy": s.Name(),
				"attempt":  attempt,
				"status":   job.Status,
			}).Debug("polled job")
		}

		switch job.Status {
		case StatusSucceeded:
			if len(job.Output) == 0 {
				return job, &JobFailedError{JobID: jobID, Detail: "no output returned"}
			}
			return job, nil
		case StatusFailed, StatusCanceled:
			return job, &JobFailedError{JobID: jobID, Detail: job.Error}
		}

		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, ErrTimeout
}

// transient reports whether a failed status check is worth repeating. Client
// errors such as an unknown prediction id are final.
func transient(err error) bool {
	var apiErr *replicate.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/replicate"
)

// Result is the outcome of a successful chain run.
type Result struct {
	ImageURL string
	JobID    string
	Strategy string
	Prompt   string
	Fallback bool
}

// Chain tries its strategies in order. Only a provider rejecting the
// submission moves on to the next strategy; once a job is accepted its outcome
// is final.
type Chain struct {
	strategies []Strategy
	poller     *Poller
	logger     logrus.FieldLogger
}

func NewChain(poller *Poller, log logrus.FieldLogger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, poller: poller, logger: log}
}

// Submitted is called once a strategy has accepted the job, before polling.
type Submitted func(strategy, jobID string)

func (c *Chain) Run(ctx context.Context, req Request, onSubmit Submitted) (*Result, error) {
	if len(c.strategies) == 0 {
		return nil, errors.New("no generation strategies configured")
	}

	var lastErr error
	for i, s := range c.strategies {
		jobID, err := s.Submit(ctx, req)
		if err != nil {
			lastErr = &SubmitError{Strategy: s.Name(), Err: err}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !rejected(err) {
				return nil, lastErr
			}
			c.logger.WithError(err).WithField("strategy", s.Name()).Warn("submission failed")
			continue
		}

		if onSubmit != nil {
			onSubmit(s.Name(), jobID)
		}

		job, err := c.poller.Wait(ctx, s, jobID)
		if err != nil {
			return nil, err
		}

		return &Result{
			ImageURL: job.Output[0],
			JobID:    jobID,
			Strategy: s.Name(),
			Prompt:   promptFor(s, req),
			Fallback: i > 0,
		}, nil
	}

	return nil, fmt.Errorf("all strategies failed: %w", lastErr)
}

// rejected reports whether the provider answered the submission with a non-2xx
// status.
func rejected(err error) bool {
	var apiErr *replicate.APIError
	return errors.As(err, &apiErr)
}

func promptFor(s Strategy, req Request) string {
	if p, ok := s.(interface{ UsesSimplePrompt() bool }); ok && p.UsesSimplePrompt() {
		return req.SimplePrompt
	}
	return req.Prompt
}

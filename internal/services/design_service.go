package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/events"
	"interior-design-backend/internal/generation"
	"interior-design-backend/internal/imageproc"
	"interior-design-backend/internal/prompt"
	"interior-design-backend/internal/storage"
)

const (
	designInputPrefix  = "design-inputs"
	enhanceInputPrefix = "enhance-inputs"
)

// Generator runs a generation request to completion. *generation.Chain
// implements it.
type Generator interface {
	Run(ctx context.Context, req generation.Request, onSubmit generation.Submitted) (*generation.Result, error)
}

type TempFiles interface {
	Read(path string) ([]byte, error)
	Remove(path string) error
}

type DesignResult struct {
	ImageURL       string
	Prompt         string
	ProcessingTime time.Duration
	JobID          string
	Strategy       string
	Fallback       bool
}

type DesignService struct {
	temp      TempFiles
	store     storage.ObjectStore
	design    Generator
	enhance   Generator
	publisher events.Publisher
	ready     bool
	logger    logrus.FieldLogger
}

// NewDesignService wires the design and enhance flows. ready is false when
// no provider key is configured and demo mode is off; every request then
// fails with ErrProviderNotConfigured.
func NewDesignService(
	temp TempFiles,
	store storage.ObjectStore,
	design Generator,
	enhance Generator,
	publisher events.Publisher,
	ready bool,
	log logrus.FieldLogger,
) *DesignService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &DesignService{
		temp:      temp,
		store:     store,
		design:    design,
		enhance:   enhance,
		publisher: publisher,
		ready:     ready,
		logger:    log,
	}
}

// GenerateDesign restyles the room photo at tempPath. The temp file is
// removed before returning, whatever the outcome.
func (s *DesignService) GenerateDesign(ctx context.Context, tempPath string, opts prompt.DesignOptions) (*DesignResult, error) {
	req := generation.Request{
		Prompt:       prompt.CreatePrompt(opts),
		SimplePrompt: prompt.SimplePrompt(opts),
	}
	return s.run(ctx, events.KindDesign, s.design, designInputPrefix, tempPath, req)
}

// EnhanceImage upscales the photo at tempPath. The temp file is removed
// before returning, whatever the outcome.
func (s *DesignService) EnhanceImage(ctx context.Context, tempPath string) (*DesignResult, error) {
	req := generation.Request{Prompt: prompt.EnhancePrompt}
	return s.run(ctx, events.KindEnhance, s.enhance, enhanceInputPrefix, tempPath, req)
}

func (s *DesignService) run(
	ctx context.Context,
	kind events.Kind,
	gen Generator,
	prefix string,
	tempPath string,
	req generation.Request,
) (*DesignResult, error) {
	start := time.Now()
	log := s.logger.WithField("kind", kind)
	defer s.removeTemp(log, tempPath)

	log.WithField("state", "received").Info("generation request received")
	s.publish(ctx, log, events.Received(kind))

	if !s.ready {
		return nil, ErrProviderNotConfigured
	}

	log.WithField("state", "uploading").Info("normalizing input image")
	s.publish(ctx, log, events.Uploading(kind))

	key, imageURL, err := s.upload(ctx, tempPath, prefix)
	if err != nil {
		log.WithError(err).WithField("state", "failed").Error("input upload failed")
		s.publish(ctx, log, events.Failed(kind, "", err.Error()))
		return nil, err
	}
	req.ImageURL = imageURL

	var jobID string
	result, err := gen.Run(ctx, req, func(strategy, id string) {
		jobID = id
		log.WithFields(logrus.Fields{
			"state":    "polling",
			"job_id":   id,
			"strategy": strategy,
		}).Info("job submitted")
		s.publish(ctx, log, events.Submitted(kind, id, strategy))
	})
	if err != nil {
		entry := log.WithError(err).WithField("job_id", jobID)
		if errors.Is(err, generation.ErrTimeout) {
			entry.WithField("state", "timed_out").Warn("generation timed out")
			s.publish(ctx, log, events.TimedOut(kind, jobID))
		} else {
			entry.WithField("state", "failed").Error("generation failed")
			s.publish(ctx, log, events.Failed(kind, jobID, err.Error()))
		}
		if inputUnused(ctx, jobID, err) {
			s.deleteInput(ctx, log, key)
		}
		return nil, err
	}

	elapsed := time.Since(start)
	log.WithFields(logrus.Fields{
		"state":      "succeeded",
		"job_id":     result.JobID,
		"strategy":   result.Strategy,
		"fallback":   result.Fallback,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("generation succeeded")
	s.publish(ctx, log, events.Succeeded(kind, result.JobID, result.Strategy, result.ImageURL))

	return &DesignResult{
		ImageURL:       result.ImageURL,
		Prompt:         result.Prompt,
		ProcessingTime: elapsed,
		JobID:          result.JobID,
		Strategy:       result.Strategy,
		Fallback:       result.Fallback,
	}, nil
}

// upload normalizes the temp file to JPEG and returns its object key and
// public URL.
func (s *DesignService) upload(ctx context.Context, tempPath, prefix string) (string, string, error) {
	raw, err := s.temp.Read(tempPath)
	if err != nil {
		return "", "", err
	}

	jpeg, err := imageproc.Normalize(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	key := storage.ObjectKey(prefix, time.Now())
	url, err := s.store.Upload(ctx, key, jpeg, "image/jpeg")
	if err != nil {
		return "", "", fmt.Errorf("failed to upload input image: %w", err)
	}
	return key, url, nil
}

// inputUnused reports whether no remote job can still read the uploaded input:
// nothing was accepted, or the accepted job ended in failure. Timed out and
// abandoned jobs keep running and keep their input.
func inputUnused(ctx context.Context, jobID string, err error) bool {
	var failed *generation.JobFailedError
	if errors.As(err, &failed) {
		return true
	}
	return jobID == "" && ctx.Err() == nil
}

func (s *DesignService) deleteInput(ctx context.Context, log logrus.FieldLogger, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to delete uploaded input")
	}
}

func (s *DesignService) removeTemp(log logrus.FieldLogger, path string) {
	if path == "" {
		return
	}
	if err := s.temp.Remove(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to remove temp file")
	}
}

func (s *DesignService) publish(ctx context.Context, log logrus.FieldLogger, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("event", e.Type).Warn("failed to publish event")
	}
}

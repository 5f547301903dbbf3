package generation

import (
	"context"
	"math/rand"

	"interior-design-backend/internal/prompt"
	"interior-design-backend/internal/replicate"
)

// Predictor is the part of the Replicate client the strategies need.
type Predictor interface {
	CreatePrediction(ctx context.Context, version string, input map[string]interface{}) (*replicate.Prediction, error)
	GetPrediction(ctx context.Context, id string) (*replicate.Prediction, error)
}

// InputBuilder maps a request onto a model's input schema.
type InputBuilder func(req Request) map[string]interface{}

type ReplicateStrategy struct {
	name         string
	version      string
	client       Predictor
	build        InputBuilder
	simplePrompt bool
}

func (s *ReplicateStrategy) Name() string { return s.name }

func (s *ReplicateStrategy) UsesSimplePrompt() bool { return s.simplePrompt }

func (s *ReplicateStrategy) Submit(ctx context.Context, req Request) (string, error) {
	pred, err := s.client.CreatePrediction(ctx, s.version, s.build(req))
	if err != nil {
		return "", err
	}
	return pred.ID, nil
}

func (s *ReplicateStrategy) Status(ctx context.Context, jobID string) (*Job, error) {
	pred, err := s.client.GetPrediction(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:     pred.ID,
		Status: JobStatus(pred.Status),
		Output: pred.OutputURLs(),
		Error:  pred.ErrorMessage(),
	}, nil
}

// Sampling parameters for the design models.
const (
	designSteps          = 50
	designGuidanceScale  = 15.0
	designPromptStrength = 0.8

	backupSteps          = 30
	backupGuidanceScale  = 7.5
	backupPromptStrength = 0.7

	enhanceScale = 2
)

// NewDesignStrategy is the primary interior-design model.
func NewDesignStrategy(client Predictor, version string) *ReplicateStrategy {
	return &ReplicateStrategy{
		name:    "replicate-interior-design",
		version: version,
		client:  client,
		build: func(req Request) map[string]interface{} {
			return map[string]interface{}{
				"image":               req.ImageURL,
				"prompt":              req.Prompt,
				"negative_prompt":     prompt.NegativePrompt,
				"num_inference_steps": designSteps,
				"guidance_scale":      designGuidanceScale,
				"prompt_strength":     designPromptStrength,
				"seed":                rand.Intn(1 << 30),
			}
		},
	}
}

// NewBackupDesignStrategy is the img2img model tried when the primary model
// rejects a submission. It receives the simplified prompt.
func NewBackupDesignStrategy(client Predictor, version string) *ReplicateStrategy {
	return &ReplicateStrategy{
		name:         "replicate-img2img",
		version:      version,
		client:       client,
		simplePrompt: true,
		build: func(req Request) map[string]interface{} {
			return map[string]interface{}{
				"image":               req.ImageURL,
				"prompt":              req.SimplePrompt,
				"negative_prompt":     prompt.NegativePrompt,
				"num_inference_steps": backupSteps,
				"guidance_scale":      backupGuidanceScale,
				"prompt_strength":     backupPromptStrength,
				"seed":                rand.Intn(1 << 30),
			}
		},
	}
}

// NewEnhanceStrategy is the upscaling model behind enhance-image.
func NewEnhanceStrategy(client Predictor, version string) *ReplicateStrategy {
	return &ReplicateStrategy{
		name:    "replicate-real-esrgan",
		version: version,
		client:  client,
		build: func(req Request) map[string]interface{} {
			return map[string]interface{}{
				"image":        req.ImageURL,
				"scale":        enhanceScale,
				"face_enhance": false,
			}
		},
	}
}

package services

import "errors"

var (
	// ErrValidation marks a request the caller has to fix.
	ErrValidation = errors.New("validation failed")

	// ErrLimitReached is returned when a free plan user has used every generation.
	ErrLimitReached = errors.New("usage limit reached")

	// ErrProviderNotConfigured is returned when no API key is set and demo mode is off.
	ErrProviderNotConfigured = errors.New("image generation provider is not configured")
)

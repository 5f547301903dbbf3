package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"interior-design-backend/internal/billing"
	"interior-design-backend/internal/generation"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/services"
)

// statusFor maps an error to its HTTP status: 400 for input the caller must
// fix, 403 for usage limits, 408 for generation timeouts and 500 otherwise.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrProviderNotConfigured),
		errors.Is(err, billing.ErrUnknownPlan),
		errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrLimitReached):
		return http.StatusForbidden
	case errors.Is(err, generation.ErrTimeout):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, summary string) {
	status := statusFor(err)
	switch status {
	case http.StatusForbidden:
		summary = "Usage limit reached"
	case http.StatusRequestTimeout:
		summary = "Generation timed out"
	}
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: summary, Details: err.Error()})
}

func badRequest(c *gin.Context, summary, details string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: summary, Details: details})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "userId does not match the authenticated user"})
}

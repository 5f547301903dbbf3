package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"interior-design-backend/internal/config"
	"interior-design-backend/internal/models"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	config *config.Config
	db     Pinger
}

func NewHealthHandler(cfg *config.Config, db Pinger) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API and which providers are configured
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	apis := map[string]bool{
		"replicate": h.config.Replicate.APIKey != "",
		"openai":    h.config.OpenAIAPIKey != "",
		"gemini":    h.config.GeminiAPIKey != "",
		"supabase":  h.config.Supabase.URL != "" && h.config.Supabase.Key() != "",
		"stripe":    h.config.Stripe.SecretKey != "",
		"database":  false,
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		apis["database"] = h.db.Ping(ctx) == nil
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		APIs:     apis,
		DemoMode: h.config.DemoMode,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/services"
)

type SubscriptionHandler struct {
	usageService *services.UsageService
}

func NewSubscriptionHandler(usageService *services.UsageService) *SubscriptionHandler {
	return &SubscriptionHandler{usageService: usageService}
}

// Status godoc
// @Summary     Get subscription status
// @Description Returns the user's plan and usage. A free plan is created on first use.
// @Tags        subscription
// @Produce     json
// @Security    Bearer
// @Param       userId query string true "User ID (UUID)"
// @Success     200 {object} models.SubscriptionStatusResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /subscription-status [get]
func (h *SubscriptionHandler) Status(c *gin.Context) {
	if h.usageService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "Missing userId", "")
		return
	}
	if !middleware.MatchesUser(c, userID) {
		forbidden(c)
		return
	}

	status, err := h.usageService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to get subscription status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// UpdateUsage godoc
// @Summary     Record a generation
// @Description Increments the free plan usage counter. Active paid plans are not metered. Returns 403 at the limit.
// @Tags        subscription
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.UpdateUsageRequest true "User"
// @Success     200 {object} models.UpdateUsageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /update-usage [post]
func (h *SubscriptionHandler) UpdateUsage(c *gin.Context) {
	if h.usageService == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return
	}

	var req models.UpdateUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing userId", err.Error())
		return
	}
	if !middleware.MatchesUser(c, req.UserID) {
		forbidden(c)
		return
	}

	resp, err := h.usageService.UpdateUsage(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err, "Failed to update usage")
		return
	}

	c.JSON(http.StatusOK, resp)
}

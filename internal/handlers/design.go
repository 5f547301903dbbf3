package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/prompt"
	"interior-design-backend/internal/services"
	"interior-design-backend/internal/storage"
)

type DesignHandler struct {
	designService *services.DesignService
	usageService  *services.UsageService
	tempStore     *storage.TempStore
	maxUploadSize int64
	logger        logrus.FieldLogger
}

// NewDesignHandler builds the generation endpoints. usageService may be nil
// when no database is configured; requests are then not metered.
func NewDesignHandler(designService *services.DesignService, usageService *services.UsageService, tempStore *storage.TempStore, maxUploadSize int64, log logrus.FieldLogger) *DesignHandler {
	return &DesignHandler{
		designService: designService,
		usageService:  usageService,
		tempStore:     tempStore,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// GenerateDesign godoc
// @Summary     Generate an interior design
// @Description Restyles an uploaded room photo. The input is normalized to JPEG, uploaded to storage and sent to the design model,
// @Description falling back once to the backup model if the primary submission is rejected. Polls every 5s for up to 5 minutes.
// @Tags        design
// @Accept      multipart/form-data
// @Produce     json
// @Param       image   formData file   true  "Room photo"
// @Param       options formData string false "DesignOptions as JSON, e.g. {\"style\":\"modern\",\"roomType\":\"kitchen\"}"
// @Param       userId  formData string false "User id; checked against the usage limit when present"
// @Success     200 {object} models.GenerateDesignResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     408 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /generate-design [post]
func (h *DesignHandler) GenerateDesign(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "No image provided", err.Error())
		return
	}
	if fh.Size > h.maxUploadSize {
		badRequest(c, "Image too large", fmt.Sprintf("maximum upload size is %d bytes", h.maxUploadSize))
		return
	}

	var opts prompt.DesignOptions
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			badRequest(c, "Invalid options", err.Error())
			return
		}
	}

	if !h.checkUsage(c, c.PostForm("userId")) {
		return
	}

	path, err := h.tempStore.Save(fh)
	if err != nil {
		respondError(c, err, "Failed to store upload")
		return
	}

	result, err := h.designService.GenerateDesign(c.Request.Context(), path, opts)
	if err != nil {
		respondError(c, err, "Failed to generate design")
		return
	}

	c.JSON(http.StatusOK, models.GenerateDesignResponse{
		Success:        true,
		ImageURL:       result.ImageURL,
		Prompt:         result.Prompt,
		ProcessingTime: result.ProcessingTime.Milliseconds(),
		Model:          result.Strategy,
		Fallback:       result.Fallback,
	})
}

// EnhanceImage godoc
// @Summary     Enhance an image
// @Description Upscales an uploaded photo with the enhancement model.
// @Tags        design
// @Accept      multipart/form-data
// @Produce     json
// @Param       image  formData file   true  "Photo to enhance"
// @Param       userId formData string false "User id; checked against the usage limit when present"
// @Success     200 {object} models.EnhanceImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     408 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /enhance-image [post]
func (h *DesignHandler) EnhanceImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "No image provided", err.Error())
		return
	}
	if fh.Size > h.maxUploadSize {
		badRequest(c, "Image too large", fmt.Sprintf("maximum upload size is %d bytes", h.maxUploadSize))
		return
	}

	if !h.checkUsage(c, c.PostForm("userId")) {
		return
	}

	path, err := h.tempStore.Save(fh)
	if err != nil {
		respondError(c, err, "Failed to store upload")
		return
	}

	result, err := h.designService.EnhanceImage(c.Request.Context(), path)
	if err != nil {
		respondError(c, err, "Failed to enhance image")
		return
	}

	c.JSON(http.StatusOK, models.EnhanceImageResponse{
		Success:        true,
		ImageURL:       result.ImageURL,
		ProcessingTime: result.ProcessingTime.Milliseconds(),
	})
}

// checkUsage rejects the request when userID has no generations left. It
// writes the error response itself and reports whether to continue.
func (h *DesignHandler) checkUsage(c *gin.Context, userID string) bool {
	if userID == "" || h.usageService == nil {
		return true
	}
	if !middleware.MatchesUser(c, userID) {
		forbidden(c)
		return false
	}
	if err := h.usageService.CanGenerate(c.Request.Context(), userID); err != nil {
		respondError(c, err, "Failed to check usage")
		return false
	}
	return true
}

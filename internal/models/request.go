package models

import (
	"encoding/json"
)

type CheckoutRequest struct {
	PlanType   string `json:"planType" binding:"required" example:"monthly"`
	UserID     string `json:"userId" binding:"required"`
	UserEmail  string `json:"userEmail" binding:"required"`
	SuccessURL string `json:"successUrl" binding:"required"`
	CancelURL  string `json:"cancelUrl" binding:"required"`
}

type UpdateUsageRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type SaveProjectRequest struct {
	ProjectName        string          `json:"projectName" binding:"required"`
	UserID             string          `json:"userId" binding:"required"`
	OriginalImageURL   string          `json:"originalImageUrl" binding:"required"`
	ProcessedImageURLs []string        `json:"processedImageUrls"`
	DesignOptions      json.RawMessage `json:"designOptions,omitempty" swaggertype:"object"`
}

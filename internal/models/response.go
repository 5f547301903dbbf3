package models

import "time"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type GenerateDesignResponse struct {
	Success        bool   `json:"success"`
	ImageURL       string `json:"imageUrl"`
	Prompt         string `json:"prompt"`
	ProcessingTime int64  `json:"processingTime"` // milliseconds
	Model          string `json:"model,omitempty"`
	Fallback       bool   `json:"fallback,omitempty"`
}

type EnhanceImageResponse struct {
	Success        bool   `json:"success"`
	ImageURL       string `json:"imageUrl"`
	ProcessingTime int64  `json:"processingTime"`
}

type HealthResponse struct {
	Status   string          `json:"status"`
	APIs     map[string]bool `json:"apis"`
	DemoMode bool            `json:"demoMode"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type SubscriptionStatusResponse struct {
	IsActive         bool       `json:"isActive"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	UsageCount       int        `json:"usageCount"`
	MaxUsage         int        `json:"maxUsage"`
	Remaining        int        `json:"remaining"`
	CanGenerate      bool       `json:"canGenerate"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

type UpdateUsageResponse struct {
	Success      bool `json:"success"`
	UsageCount   int  `json:"usageCount"`
	MaxUsage     int  `json:"maxUsage"`
	LimitReached bool `json:"limitReached"`
}

type SaveProjectResponse struct {
	Success bool     `json:"success"`
	Project *Project `json:"project"`
	Images  []Image  `json:"images"`
}

type ProjectListResponse struct {
	Projects []Project `json:"projects"`
}

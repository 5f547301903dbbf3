package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"interior-design-backend/internal/billing"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
)

// Stripe recommends rejecting webhook bodies larger than this.
const maxWebhookBodyBytes = 65536

type BillingHandler struct {
	billingService *billing.Service
	logger         logrus.FieldLogger
}

func NewBillingHandler(billingService *billing.Service, log logrus.FieldLogger) *BillingHandler {
	return &BillingHandler{billingService: billingService, logger: log}
}

// Checkout godoc
// @Summary     Create a Stripe checkout session
// @Description Opens a subscription checkout for the monthly or yearly plan.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CheckoutRequest true "Checkout request"
// @Success     200 {object} models.CheckoutResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /stripe-checkout [post]
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields", err.Error())
		return
	}
	if !middleware.MatchesUser(c, req.UserID) {
		forbidden(c)
		return
	}

	resp, err := h.billingService.CreateCheckoutSession(c.Request.Context(), billing.CheckoutInput{
		PlanType:   req.PlanType,
		UserID:     req.UserID,
		UserEmail:  req.UserEmail,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		respondError(c, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Webhook godoc
// @Summary     Stripe webhook endpoint
// @Description Receives Stripe events. The Stripe-Signature header is verified against the webhook secret.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Stripe signature"
// @Success     200 {object} models.WebhookResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /stripe-webhook [post]
func (h *BillingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		badRequest(c, "Failed to read request body", err.Error())
		return
	}

	if err := h.billingService.HandleWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature")); err != nil {
		h.logger.WithError(err).Warn("stripe webhook rejected")
		respondError(c, err, "Webhook error")
		return
	}

	c.JSON(http.StatusOK, models.WebhookResponse{Received: true})
}

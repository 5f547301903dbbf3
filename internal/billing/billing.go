package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"interior-design-backend/internal/config"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/supabase"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownPlan      = errors.New("unknown plan type")
	ErrNotConfigured    = errors.New("stripe is not configured")
)

// CheckoutSessions is the subset of the stripe session client used here.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	ActivateSubscription(ctx context.Context, userID, plan, customerID, subscriptionID string, periodEnd *time.Time, freeMaxUsage int) error
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string, periodEnd *time.Time) (string, error)
	DowngradeSubscription(ctx context.Context, subscriptionID string, freeMaxUsage int) (string, error)
	MarkPastDue(ctx context.Context, customerID string) (string, error)
}

// Invalidator drops cached subscription state for a user.
type Invalidator interface {
	Delete(ctx context.Context, userID string) error
}

type Service struct {
	sessions     CheckoutSessions
	store        SubscriptionStore
	cache        Invalidator
	cfg          config.StripeConfig
	freeMaxUsage int
	log          logrus.FieldLogger
}

// NewService builds the billing service. freeMaxUsage is the allowance a user
// falls back to when a paid subscription ends.
func NewService(sessions CheckoutSessions, store SubscriptionStore, cache Invalidator, cfg config.StripeConfig, freeMaxUsage int, log logrus.FieldLogger) *Service {
	return &Service{
		sessions:     sessions,
		store:        store,
		cache:        cache,
		cfg:          cfg,
		freeMaxUsage: freeMaxUsage,
		log:          log,
	}
}

type CheckoutInput struct {
	PlanType   string
	UserID     string
	UserEmail  string
	SuccessURL string
	CancelURL  string
}

func (s *Service) priceFor(plan string) (string, error) {
	var price string
	switch plan {
	case models.PlanMonthly:
		price = s.cfg.MonthlyPriceID
	case models.PlanYearly:
		price = s.cfg.YearlyPriceID
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if price == "" {
		return "", fmt.Errorf("%w: no price configured for %s", ErrNotConfigured, plan)
	}
	return price, nil
}

// CreateCheckoutSession opens a subscription checkout for the user. An
// existing Stripe customer is reused so each user maps to one customer.
func (s *Service) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*models.CheckoutResponse, error) {
	if s.sessions == nil {
		return nil, ErrNotConfigured
	}
	price, err := s.priceFor(in.PlanType)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: no subscription store", ErrNotConfigured)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"userId":   in.UserID,
				"planType": in.PlanType,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("userId", in.UserID)
	params.AddMetadata("planType", in.PlanType)

	sub, err := s.store.GetSubscription(ctx, in.UserID)
	switch {
	case err == nil && sub.StripeCustomerID.Valid:
		params.Customer = stripe.String(sub.StripeCustomerID.String)
	case err == nil || errors.Is(err, supabase.ErrNotFound):
		params.CustomerEmail = stripe.String(in.UserEmail)
	default:
		return nil, err
	}

	session, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    in.UserID,
		"plan":       in.PlanType,
		"session_id": session.ID,
	}).Info("checkout session created")

	return &models.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// HandleWebhook verifies the Stripe signature and applies the event to the
// user's subscription row. Unhandled event types are acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	log := s.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
	if s.store == nil {
		return fmt.Errorf("%w: no subscription store", ErrNotConfigured)
	}

	var userID string
	switch event.Type {
	case "checkout.session.completed":
		userID, err = s.checkoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.updated":
		userID, err = s.subscriptionUpdated(ctx, event.Data.Raw)
	case "customer.subscription.deleted":
		userID, err = s.subscriptionDeleted(ctx, event.Data.Raw)
	case "invoice.payment_failed":
		userID, err = s.paymentFailed(ctx, event.Data.Raw)
	default:
		log.Debug("ignoring webhook event")
		return nil
	}

	if errors.Is(err, supabase.ErrNotFound) {
		log.Warn("webhook event matches no subscription")
		return nil
	}
	if err != nil {
		return err
	}

	if userID != "" {
		if err := s.cache.Delete(ctx, userID); err != nil {
			log.WithError(err).Warn("failed to invalidate subscription cache")
		}
	}
	log.WithField("user_id", userID).Info("webhook event applied")
	return nil
}

func (s *Service) checkoutCompleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return "", fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["userId"]
	}
	if userID == "" {
		return "", fmt.Errorf("checkout session %s has no user reference", session.ID)
	}

	plan := session.Metadata["planType"]
	if plan != models.PlanMonthly && plan != models.PlanYearly {
		plan = models.PlanMonthly
	}

	var customerID, subscriptionID string
	var periodEnd *time.Time
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
		periodEnd = unixTime(session.Subscription.CurrentPeriodEnd)
	}

	if err := s.store.ActivateSubscription(ctx, userID, plan, customerID, subscriptionID, periodEnd, s.freeMaxUsage); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Service) subscriptionUpdated(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("failed to parse subscription: %w", err)
	}
	return s.store.UpdateSubscriptionStatus(ctx, sub.ID, subscriptionStatus(sub.Status), unixTime(sub.CurrentPeriodEnd))
}

func (s *Service) subscriptionDeleted(ctx context.Context, raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("failed to parse subscription: %w", err)
	}
	return s.store.DowngradeSubscription(ctx, sub.ID, s.freeMaxUsage)
}

func (s *Service) paymentFailed(ctx context.Context, raw json.RawMessage) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return "", fmt.Errorf("failed to parse invoice: %w", err)
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return "", supabase.ErrNotFound
	}
	return s.store.MarkPastDue(ctx, invoice.Customer.ID)
}

func subscriptionStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCanceled
	default:
		return string(status)
	}
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

package models

import (
	"database/sql"
	"time"
)

const (
	PlanFree    = "free"
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"

	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Subscription is a row of user_subscriptions.
type Subscription struct {
	ID                   string         `db:"id"`
	UserID               string         `db:"user_id"`
	Plan                 string         `db:"plan"`
	Status               string         `db:"status"`
	UsageCount           int            `db:"usage_count"`
	MaxUsage             int            `db:"max_usage"`
	StripeCustomerID     sql.NullString `db:"stripe_customer_id"`
	StripeSubscriptionID sql.NullString `db:"stripe_subscription_id"`
	CurrentPeriodEnd     sql.NullTime   `db:"current_period_end"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// IsPaidActive reports whether the user is on an active paid plan, which is
// not metered.
func (s *Subscription) IsPaidActive() bool {
	return (s.Plan == PlanMonthly || s.Plan == PlanYearly) && s.Status == SubscriptionActive
}

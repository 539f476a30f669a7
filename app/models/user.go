// Package models defines plan tiers, subscriptions and usage tracking fields.
package models

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// PlanLimits holds the daily allowance per analysis kind for one tier.
type PlanLimits struct {
	Deck int `json:"deck"`
	Hand int `json:"hand"`
	Card int `json:"card"`
}

type User struct {
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	LastLogin time.Time `db:"last_login"`
}

// Subscription mirrors one row of the subscriptions table. Billing webhooks
// write it; the analysis flow only reads it.
type Subscription struct {
	UserID               string    `db:"user_id"`
	Plan                 Plan      `db:"plan"`
	Status               string    `db:"status"`
	StripeCustomerID     string    `db:"stripe_customer_id"`
	StripeSubscriptionID string    `db:"stripe_subscription_id"`
	StartedAt            time.Time `db:"started_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

const SubscriptionStatusActive = "active"

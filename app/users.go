// Package app provides user and subscription persistence for authenticated
// requests.
package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gabbezeira/handtrap-api/app/models"
	"github.com/gabbezeira/handtrap-api/auth"
)

// UpsertUserFromClaims creates a user row on first authenticated request
// and refreshes last_login on later ones.
func UpsertUserFromClaims(ctx context.Context, claims *auth.Claims) error {
	if db == nil {
		return nil
	}
	if claims == nil || claims.UserID == "" {
		return nil
	}

	const q = `
		INSERT INTO users (user_id, email, name, created_at, last_login)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET last_login = now();
	`

	_, err := db.ExecContext(
		ctx,
		q,
		claims.UserID,
		nullIfEmpty(strings.TrimSpace(claims.Email)),
		nullIfEmpty(strings.TrimSpace(claims.Name)),
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// getSubscription reads the user's subscription row, reporting absence
// separately from failure.
func getSubscription(ctx context.Context, userID string) (models.Subscription, bool, error) {
	if db == nil {
		return models.Subscription{}, false, nil
	}

	sub := models.Subscription{UserID: userID}
	var customerID, subscriptionID sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT plan, status, stripe_customer_id, stripe_subscription_id, started_at, updated_at
		FROM subscriptions
		WHERE user_id = $1;
	`, userID).Scan(&sub.Plan, &sub.Status, &customerID, &subscriptionID, &sub.StartedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, false, nil
	}
	if err != nil {
		return models.Subscription{}, false, err
	}
	sub.StripeCustomerID = customerID.String
	sub.StripeSubscriptionID = subscriptionID.String
	return sub, true, nil
}

// upsertSubscription writes the subscription row. Only billing webhook
// processing calls this; the analysis flow never mutates subscriptions.
func upsertSubscription(ctx context.Context, sub models.Subscription) error {
	if db == nil {
		return errors.New("db not initialized")
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id, stripe_subscription_id, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			updated_at = now();
	`, sub.UserID, sub.Plan, sub.Status,
		nullIfEmpty(sub.StripeCustomerID), nullIfEmpty(sub.StripeSubscriptionID), sub.StartedAt)
	return err
}

// downgradeSubscriptionByStripeCustomer marks a subscription free/cancelled
// when Stripe reports the underlying subscription is gone.
func downgradeSubscriptionByStripeCustomer(ctx context.Context, stripeCustomerID string) error {
	if db == nil {
		return errors.New("db not initialized")
	}
	if stripeCustomerID == "" {
		return errors.New("missing stripe customer id")
	}

	_, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan = $1, status = 'cancelled', updated_at = now()
		WHERE stripe_customer_id = $2;
	`, models.PlanFree, stripeCustomerID)
	return err
}

// getStripeCustomerID returns the stored Stripe customer id for a user, or
// empty when none exists yet.
func getStripeCustomerID(ctx context.Context, userID string) (string, error) {
	if db == nil {
		return "", errors.New("db not initialized")
	}

	var customerID sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT stripe_customer_id
		FROM subscriptions
		WHERE user_id = $1;
	`, userID).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return customerID.String, nil
}

// saveStripeCustomerID stores a freshly created Stripe customer id, creating
// a placeholder free subscription row if none exists.
func saveStripeCustomerID(ctx context.Context, userID, stripeCustomerID string) error {
	if db == nil {
		return errors.New("db not initialized")
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id, started_at, updated_at)
		VALUES ($1, $2, 'none', $3, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			updated_at = now();
	`, userID, models.PlanFree, stripeCustomerID)
	return err
}

package app

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/gabbezeira/handtrap-api/app/config"
	"github.com/gabbezeira/handtrap-api/app/models"
	"github.com/gabbezeira/handtrap-api/auth"
)

// CreateCheckoutSession starts a Stripe Checkout Session for the premium
// subscription.
func CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	stripeCustomerID, err := ensureStripeCustomer(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user", claims.UserID).Msg("ensureStripeCustomer failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("stripe checkout config load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	priceID := cfg.Stripe.PriceIDPremiumMonthly
	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if priceID == "" || frontendURL == "" {
		log.Error().Bool("price_id", priceID != "").Bool("frontend_url", frontendURL != "").
			Msg("missing Stripe config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(stripeCustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(frontendURL + "/billing/success"),
		CancelURL:         stripe.String(frontendURL + "/billing/cancel"),
		ClientReferenceID: stripe.String(claims.UserID),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Error().Err(err).Msg("stripe checkout session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// StripeWebhook handles Stripe subscription events and updates the
// subscription store. The analysis core only ever reads the result.
func StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Error().Err(err).Msg("stripe webhook read failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("stripe webhook config load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	endpointSecret := cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Error().Msg("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		sigHeader,
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Error().Err(err).Msg("stripe webhook signature failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Error().Err(err).Msg("stripe session unmarshal failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}

		userID := sess.ClientReferenceID
		if userID == "" && sess.Metadata != nil {
			userID = sess.Metadata["user_id"]
		}
		if userID == "" {
			log.Error().Msg("stripe session missing user reference")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing user reference"})
			return
		}

		sub := models.Subscription{
			UserID:    userID,
			Plan:      models.PlanPremium,
			Status:    models.SubscriptionStatusActive,
			StartedAt: time.Now().UTC(),
		}
		if sess.Customer != nil {
			sub.StripeCustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			sub.StripeSubscriptionID = sess.Subscription.ID
		}

		if err := upsertSubscription(c.Request.Context(), sub); err != nil {
			log.Error().Err(err).Str("user", userID).Msg("stripe plan upgrade failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
			return
		}
		log.Info().Str("user", userID).Msg("premium upgrade successful")
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Error().Err(err).Msg("stripe subscription unmarshal failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		customerID := ""
		if sub.Customer != nil {
			customerID = sub.Customer.ID
		}
		if customerID == "" {
			log.Error().Msg("stripe subscription missing customer id")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing customer id"})
			return
		}

		if err := downgradeSubscriptionByStripeCustomer(c.Request.Context(), customerID); err != nil {
			log.Error().Err(err).Str("customer", customerID).Msg("stripe plan downgrade failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
			return
		}
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreatePortalSession creates a Stripe Customer Portal session so users can
// manage or cancel their subscription.
func CreatePortalSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	stripeCustomerID, err := getStripeCustomerID(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user", claims.UserID).Msg("portal lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}
	if stripeCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active subscription found"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("portal config load failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if frontendURL == "" {
		log.Error().Msg("missing Stripe config: frontend_url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(stripeCustomerID),
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	}

	sess, err := portal.New(params)
	if err != nil {
		log.Error().Err(err).Msg("stripe portal session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

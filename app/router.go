// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gabbezeira/handtrap-api/auth"
)

// NewRouter builds the shared HTTP router for both local and Lambda
// execution.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.POST("/api/stripe/webhook", StripeWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	authCfg := auth.MiddlewareConfig{
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			return UpsertUserFromClaims(c.Request.Context(), claims)
		},
	}

	// Deck analysis allows anonymous cache reads; the orchestrator enforces
	// identity when forceRefresh is set.
	router.POST("/api/analyze", auth.OptionalMiddleware(verifier, authCfg), AnalyzeDeck)

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, authCfg))
	protected.GET("/me", Me)
	protected.POST("/api/analyze-card", AnalyzeCard)
	protected.POST("/api/analyze-hand", AnalyzeHand)
	protected.POST("/api/feedback", SubmitFeedback)
	protected.GET("/api/admin/usage", GetAPIUsageStats)
	protected.POST("/api/billing/create-checkout-session", CreateCheckoutSession)
	protected.POST("/api/billing/portal-session", CreatePortalSession)

	return router, nil
}

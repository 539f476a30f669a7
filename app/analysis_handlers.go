package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app/config"
	"github.com/gabbezeira/handtrap-api/app/models"
	"github.com/gabbezeira/handtrap-api/auth"
)

var (
	analysis     *AnalysisService
	isProduction bool
)

const analysisRequestTimeout = 3 * time.Minute

// MustInitServices wires the orchestrator with its Postgres-backed stores
// and the Gemini gateway. Call after MustInitDB.
func MustInitServices() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	gateway, err := NewGeminiClient(cfg, PGUsageRecorder{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init model gateway")
	}

	analysis = NewAnalysisService(PGAnalysisCache{}, PGUsageLedger{}, PGPlanResolver{}, gateway)
	isProduction = cfg.IsProduction()
}

func userIDFromContext(c *gin.Context) string {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}

// AnalyzeDeck serves POST /api/analyze. Cache reads are open to anonymous
// callers; forceRefresh requires identity and quota.
func AnalyzeDeck(c *gin.Context) {
	var req models.AnalyzeDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), analysisRequestTimeout)
	defer cancel()

	result, err := analysis.AnalyzeDeck(ctx, userIDFromContext(c), req)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeCard serves POST /api/analyze-card. Cache hits are free; misses
// pre-charge the card quota.
func AnalyzeCard(c *gin.Context) {
	var req models.AnalyzeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), analysisRequestTimeout)
	defer cancel()

	result, err := analysis.AnalyzeCard(ctx, userIDFromContext(c), req)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeHand serves POST /api/analyze-hand. Never cached.
func AnalyzeHand(c *gin.Context) {
	var req models.AnalyzeHandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), analysisRequestTimeout)
	defer cancel()

	result, err := analysis.AnalyzeHand(ctx, userIDFromContext(c), req)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondAnalysisError maps the orchestrator's error taxonomy onto HTTP
// statuses. Internal detail is withheld in production.
func respondAnalysisError(c *gin.Context, err error) {
	var limitErr LimitReachedError
	switch {
	case errors.As(err, &limitErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": limitErr.Error(),
			"limit": limitErr.Limit,
			"plan":  limitErr.Plan,
		})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached analysis for this deck"})
	case errors.Is(err, ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, ErrMalformedResponse):
		log.Error().Err(err).Msg("model response unparseable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "the AI returned an invalid response"})
	case errors.Is(err, ErrUpstreamFailure):
		log.Error().Err(err).Msg("model provider unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "the AI service is unavailable, try again later"})
	default:
		log.Error().Err(err).Msg("analysis failed")
		if isProduction {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

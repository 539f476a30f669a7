// Package app provides public health and authenticated identity endpoints.
package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gabbezeira/handtrap-api/app/models"
	"github.com/gabbezeira/handtrap-api/auth"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

type operationUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Me returns the authenticated user's plan and today's usage per operation.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	resolver := PGPlanResolver{}
	plan, limits, err := resolver.Resolve(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}

	counters, err := readAllCounters(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	today := usageDayUTC(time.Now())
	usage := gin.H{
		"deck": usageFor(counters, models.OpDeckAnalysis, limits.Deck, today),
		"hand": usageFor(counters, models.OpHandAnalysis, limits.Hand, today),
		"card": usageFor(counters, models.OpCardAnalysis, limits.Card, today),
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":  plan,
		"date":  today,
		"usage": usage,
	})
}

func usageFor(counters map[models.Operation]models.UsageCounter, op models.Operation, limit int, today string) operationUsage {
	used := effectiveCount(counters[op], today)
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return operationUsage{Used: used, Limit: limit, Remaining: remaining}
}

// Admin endpoint aggregating the api_usage accounting log.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gabbezeira/handtrap-api/app/models"
)

type usageBucket struct {
	Calls  int     `json:"calls"`
	Cost   float64 `json:"cost"`
	Tokens int     `json:"tokens"`
}

type usageStats struct {
	TotalCost         float64                `json:"totalCost"`
	TotalInputTokens  int                    `json:"totalInputTokens"`
	TotalOutputTokens int                    `json:"totalOutputTokens"`
	TotalCalls        int                    `json:"totalCalls"`
	ByOperation       map[string]usageBucket `json:"byOperation"`
	ByModel           map[string]usageBucket `json:"byModel"`
}

// GetAPIUsageStats returns aggregate model spend for an admin dashboard.
// Defaults to the last 30 days; ?period=N overrides.
func GetAPIUsageStats(c *gin.Context) {
	days := 30
	if q := c.Query("period"); q != "" {
		if v, err := parsePositiveInt(q); err == nil && v > 0 && v <= 365 {
			days = v
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	since := time.Now().UTC().AddDate(0, 0, -days)
	records, err := readAPIUsageSince(ctx, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch usage stats"})
		return
	}

	stats := aggregateUsage(records)
	c.JSON(http.StatusOK, gin.H{
		"period":  days,
		"stats":   stats,
		"pricing": tokenPrices,
	})
}

func aggregateUsage(records []models.APIUsageRecord) usageStats {
	stats := usageStats{
		ByOperation: map[string]usageBucket{},
		ByModel:     map[string]usageBucket{},
	}

	for _, rec := range records {
		tokens := rec.InputTokens + rec.OutputTokens
		stats.TotalCost += rec.EstimatedCostUSD
		stats.TotalInputTokens += rec.InputTokens
		stats.TotalOutputTokens += rec.OutputTokens
		stats.TotalCalls++

		op := stats.ByOperation[string(rec.Operation)]
		op.Calls++
		op.Cost += rec.EstimatedCostUSD
		op.Tokens += tokens
		stats.ByOperation[string(rec.Operation)] = op

		m := stats.ByModel[rec.Model]
		m.Calls++
		m.Cost += rec.EstimatedCostUSD
		m.Tokens += tokens
		stats.ByModel[rec.Model] = m
	}
	return stats
}

func readAPIUsageSince(ctx context.Context, since time.Time) ([]models.APIUsageRecord, error) {
	if db == nil {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT ts, model, operation, input_tokens, output_tokens, estimated_cost_usd
		FROM api_usage
		WHERE ts >= $1
		ORDER BY ts DESC;
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.APIUsageRecord
	for rows.Next() {
		var rec models.APIUsageRecord
		if err := rows.Scan(
			&rec.Timestamp,
			&rec.Model,
			&rec.Operation,
			&rec.InputTokens,
			&rec.OutputTokens,
			&rec.EstimatedCostUSD,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// converts string to int safely
func parsePositiveInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

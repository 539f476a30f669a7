package models

import "time"

// Operation identifies which analysis kind a usage counter tracks.
type Operation string

const (
	OpDeckAnalysis Operation = "deck_analysis"
	OpHandAnalysis Operation = "hand_analysis"
	OpCardAnalysis Operation = "card_analysis"
)

// UsageCounter is one row of usage_counters: the number of analyses a user
// has run on Date. Date is a UTC calendar day ("2006-01-02"); a stored date
// older than today means the counter is logically zero.
type UsageCounter struct {
	UserID    string    `db:"user_id"`
	Operation Operation `db:"operation"`
	Date      string    `db:"usage_date"`
	Count     int       `db:"count"`
}

// APIUsageRecord is one row of the append-only api_usage accounting log.
type APIUsageRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Operation        Operation `json:"operation"`
	InputTokens      int       `json:"inputTokens"`
	OutputTokens     int       `json:"outputTokens"`
	EstimatedCostUSD float64   `json:"estimatedCostUSD"`
}

// Analysis feedback: one vote per (deck fingerprint, user), upserted.
package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app/models"
	"github.com/gabbezeira/handtrap-api/auth"
)

// SubmitFeedback records an accuracy vote against a deck analysis.
func SubmitFeedback(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	userName := claims.Name
	if userName == "" {
		userName = "Anonymous"
	}

	if err := saveFeedback(c.Request.Context(), req.DeckHash, claims.UserID, userName, req.Vote, req.Reason); err != nil {
		log.Error().Err(err).Str("user", claims.UserID).Msg("feedback write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "feedback submitted"})
}

func saveFeedback(ctx context.Context, fingerprint, userID, userName, vote, reason string) error {
	if db == nil {
		return nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO deck_feedback (fingerprint, user_id, user_name, vote, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (fingerprint, user_id)
		DO UPDATE SET vote = EXCLUDED.vote, reason = EXCLUDED.reason, created_at = now();
	`, fingerprint, userID, userName, vote, reason)
	return err
}

package app

import (
	"context"

	"github.com/gabbezeira/handtrap-api/app/models"
)

// Daily limits per tier. Values are product policy, not structure.
var planLimits = map[models.Plan]models.PlanLimits{
	models.PlanFree:    {Deck: 1, Hand: 3, Card: 5},
	models.PlanPremium: {Deck: 3, Hand: 5, Card: 10},
}

// LimitsFor returns the daily limit table for a tier. Unknown tiers fall
// back to the free limits.
func LimitsFor(plan models.Plan) models.PlanLimits {
	if limits, ok := planLimits[plan]; ok {
		return limits
	}
	return planLimits[models.PlanFree]
}

// PlanResolver maps a user to their current tier and limits.
type PlanResolver interface {
	Resolve(ctx context.Context, userID string) (models.Plan, models.PlanLimits, error)
}

// PGPlanResolver reads the subscriptions table. A user is premium only when
// the record shows plan=premium AND status=active; a missing record, an
// inactive status or any other plan value resolves to free.
type PGPlanResolver struct{}

func (PGPlanResolver) Resolve(ctx context.Context, userID string) (models.Plan, models.PlanLimits, error) {
	sub, found, err := getSubscription(ctx, userID)
	if err != nil {
		return "", models.PlanLimits{}, err
	}

	plan := models.PlanFree
	if found && sub.Plan == models.PlanPremium && sub.Status == models.SubscriptionStatusActive {
		plan = models.PlanPremium
	}
	return plan, LimitsFor(plan), nil
}

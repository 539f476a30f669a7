package app

import (
	"testing"

	"github.com/gabbezeira/handtrap-api/app/models"
)

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(models.PlanFree)
	if free.Deck != 1 || free.Hand != 3 || free.Card != 5 {
		t.Fatalf("free limits = %+v", free)
	}

	premium := LimitsFor(models.PlanPremium)
	if premium.Deck != 3 || premium.Hand != 5 || premium.Card != 10 {
		t.Fatalf("premium limits = %+v", premium)
	}

	// Unknown tiers fall back to free.
	if got := LimitsFor(models.Plan("enterprise")); got != free {
		t.Fatalf("unknown plan limits = %+v, want free %+v", got, free)
	}
	if got := LimitsFor(""); got != free {
		t.Fatalf("empty plan limits = %+v, want free %+v", got, free)
	}
}

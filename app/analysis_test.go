package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gabbezeira/handtrap-api/app/models"
)

// In-memory fakes for the orchestrator's collaborators.

type fakeCache struct {
	decks    map[string]models.CachedDeckAnalysis
	cards    map[string]models.CachedCardAnalysis
	putDecks int
	putCards int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		decks: map[string]models.CachedDeckAnalysis{},
		cards: map[string]models.CachedCardAnalysis{},
	}
}

func (f *fakeCache) GetDeck(_ context.Context, fingerprint string) (*models.CachedDeckAnalysis, error) {
	if entry, ok := f.decks[fingerprint]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (f *fakeCache) PutDeck(_ context.Context, entry models.CachedDeckAnalysis) error {
	f.decks[entry.Fingerprint] = entry
	f.putDecks++
	return nil
}

func (f *fakeCache) GetCard(_ context.Context, fingerprint string) (*models.CachedCardAnalysis, error) {
	if entry, ok := f.cards[fingerprint]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (f *fakeCache) PutCard(_ context.Context, entry models.CachedCardAnalysis) error {
	f.cards[entry.Fingerprint] = entry
	f.putCards++
	return nil
}

type fakeLedger struct {
	counts map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{counts: map[string]int{}}
}

func (f *fakeLedger) key(userID string, op models.Operation) string {
	return userID + "/" + string(op)
}

func (f *fakeLedger) MayProceed(_ context.Context, userID string, op models.Operation, limit int) (bool, error) {
	return f.counts[f.key(userID, op)] < limit, nil
}

func (f *fakeLedger) TryConsume(_ context.Context, userID string, op models.Operation, limit int) (bool, error) {
	k := f.key(userID, op)
	if f.counts[k] >= limit {
		return false, nil
	}
	f.counts[k]++
	return true, nil
}

func (f *fakeLedger) Consume(_ context.Context, userID string, op models.Operation) error {
	f.counts[f.key(userID, op)]++
	return nil
}

type fakePlans struct {
	plan models.Plan
}

func (f fakePlans) Resolve(_ context.Context, _ string) (models.Plan, models.PlanLimits, error) {
	return f.plan, LimitsFor(f.plan), nil
}

type fakeGateway struct {
	deckCalls int
	cardCalls int
	handCalls int
	fail      error
}

func (f *fakeGateway) AnalyzeDeck(_ context.Context, _ models.Plan, _ []string) (*models.DeckAnalysis, error) {
	f.deckCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.DeckAnalysis{Archetype: "Snake-Eye", Overview: "strong opener"}, nil
}

func (f *fakeGateway) AnalyzeCard(_ context.Context, _ models.Plan, cardName string) (*models.CardAnalysis, error) {
	f.cardCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.CardAnalysis{Summary: "hand trap for " + cardName}, nil
}

func (f *fakeGateway) AnalyzeHand(_ context.Context, _ models.Plan, _, _ []string) (*models.HandAnalysis, error) {
	f.handCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &models.HandAnalysis{Playability: 8, Verdict: "keep"}, nil
}

func newTestService(plan models.Plan) (*AnalysisService, *fakeCache, *fakeLedger, *fakeGateway) {
	cache := newFakeCache()
	ledger := newFakeLedger()
	gateway := &fakeGateway{}
	svc := NewAnalysisService(cache, ledger, fakePlans{plan: plan}, gateway)
	return svc, cache, ledger, gateway
}

func deckReq(refresh bool) models.AnalyzeDeckRequest {
	return models.AnalyzeDeckRequest{
		DeckList:     []string{"Snake-Eye Ash", "Snake-Eye Oak", "Bonfire"},
		CardIDs:      []int64{9023, 1184, 22021},
		ForceRefresh: refresh,
	}
}

func TestAnalyzeDeckMissWithoutRefresh(t *testing.T) {
	svc, _, ledger, gateway := newTestService(models.PlanFree)

	_, err := svc.AnalyzeDeck(context.Background(), "user-1", deckReq(false))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cache miss without refresh: err = %v, want ErrNotFound", err)
	}
	if gateway.deckCalls != 0 {
		t.Fatalf("plain miss must never reach the model, got %d calls", gateway.deckCalls)
	}
	if len(ledger.counts) != 0 {
		t.Fatalf("plain miss must not touch the ledger: %v", ledger.counts)
	}
}

func TestAnalyzeDeckCacheHitIsAnonymousAndFree(t *testing.T) {
	svc, cache, ledger, gateway := newTestService(models.PlanFree)

	req := deckReq(false)
	fingerprint := DeckFingerprint(req.CardIDs)
	cache.decks[fingerprint] = models.CachedDeckAnalysis{
		Fingerprint: fingerprint,
		Analysis:    models.DeckAnalysis{Archetype: "Labrynth", Overview: "trap control"},
	}

	// Empty userID: cache reads don't require identity.
	result, err := svc.AnalyzeDeck(context.Background(), "", req)
	if err != nil {
		t.Fatalf("AnalyzeDeck cache hit error = %v", err)
	}
	if result.Source != models.SourceCache || result.Analysis.Archetype != "Labrynth" {
		t.Fatalf("unexpected cached result: %+v", result)
	}
	if result.Fingerprint != fingerprint {
		t.Fatalf("result fingerprint = %s, want %s", result.Fingerprint, fingerprint)
	}
	if gateway.deckCalls != 0 || len(ledger.counts) != 0 {
		t.Fatalf("cache hit must not call the model or the ledger")
	}
}

func TestAnalyzeDeckRefreshRequiresIdentity(t *testing.T) {
	svc, _, _, gateway := newTestService(models.PlanFree)

	_, err := svc.AnalyzeDeck(context.Background(), "", deckReq(true))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous refresh: err = %v, want ErrUnauthenticated", err)
	}
	if gateway.deckCalls != 0 {
		t.Fatalf("anonymous refresh must not reach the model")
	}
}

func TestAnalyzeDeckRefreshChargesAfterSuccess(t *testing.T) {
	svc, cache, ledger, _ := newTestService(models.PlanFree)

	result, err := svc.AnalyzeDeck(context.Background(), "user-1", deckReq(true))
	if err != nil {
		t.Fatalf("AnalyzeDeck refresh error = %v", err)
	}
	if result.Source != models.SourceFresh || result.PlanUsed != models.PlanFree {
		t.Fatalf("unexpected refresh result: %+v", result)
	}
	if cache.putDecks != 1 {
		t.Fatalf("refresh must write the cache, putDecks = %d", cache.putDecks)
	}
	if got := ledger.counts["user-1/deck_analysis"]; got != 1 {
		t.Fatalf("deck counter = %d, want 1", got)
	}

	// Same deck, no refresh: now a hit.
	hit, err := svc.AnalyzeDeck(context.Background(), "user-1", deckReq(false))
	if err != nil {
		t.Fatalf("AnalyzeDeck after refresh error = %v", err)
	}
	if hit.Source != models.SourceCache {
		t.Fatalf("post-refresh read source = %s, want cache", hit.Source)
	}
}

func TestAnalyzeDeckRefreshLimitReached(t *testing.T) {
	svc, _, ledger, gateway := newTestService(models.PlanFree)
	ledger.counts["user-1/deck_analysis"] = 1 // free deck limit

	_, err := svc.AnalyzeDeck(context.Background(), "user-1", deckReq(true))
	var limitErr LimitReachedError
	if !errors.As(err, &limitErr) {
		t.Fatalf("over-limit refresh: err = %v, want LimitReachedError", err)
	}
	if limitErr.Operation != models.OpDeckAnalysis || limitErr.Plan != models.PlanFree || limitErr.Limit != 1 {
		t.Fatalf("unexpected limit error: %+v", limitErr)
	}
	if gateway.deckCalls != 0 {
		t.Fatalf("over-limit refresh must not reach the model")
	}
}

func TestAnalyzeDeckFailedRefreshIsNotCharged(t *testing.T) {
	svc, cache, ledger, gateway := newTestService(models.PlanFree)
	gateway.fail = fmt.Errorf("%w: both credentials failed", ErrUpstreamFailure)

	_, err := svc.AnalyzeDeck(context.Background(), "user-1", deckReq(true))
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("failed refresh: err = %v, want ErrUpstreamFailure", err)
	}
	if got := ledger.counts["user-1/deck_analysis"]; got != 0 {
		t.Fatalf("failed generation charged the user: counter = %d", got)
	}
	if cache.putDecks != 0 {
		t.Fatalf("failed generation must not write the cache")
	}
}

func TestAnalyzeCardRequiresIdentity(t *testing.T) {
	svc, _, _, _ := newTestService(models.PlanFree)

	_, err := svc.AnalyzeCard(context.Background(), "", models.AnalyzeCardRequest{CardName: "Nibiru, the Primal Being"})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous card analysis: err = %v, want ErrUnauthenticated", err)
	}
}

func TestAnalyzeCardPreChargesOnMiss(t *testing.T) {
	svc, cache, ledger, gateway := newTestService(models.PlanFree)
	gateway.fail = fmt.Errorf("%w: boom", ErrUpstreamFailure)

	// Pre-charge discipline: the unit is spent even when the model fails.
	_, err := svc.AnalyzeCard(context.Background(), "user-1", models.AnalyzeCardRequest{CardName: "Droll & Lock Bird"})
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("card analysis failure: err = %v", err)
	}
	if got := ledger.counts["user-1/card_analysis"]; got != 1 {
		t.Fatalf("card counter after failed pre-charged call = %d, want 1", got)
	}
	if cache.putCards != 0 {
		t.Fatalf("failed card analysis must not write the cache")
	}
}

func TestAnalyzeCardCachedReadsAreFree(t *testing.T) {
	svc, cache, ledger, gateway := newTestService(models.PlanFree)

	fingerprint := CardFingerprint("Effect Veiler")
	cache.cards[fingerprint] = models.CachedCardAnalysis{
		Fingerprint: fingerprint,
		CardName:    "Effect Veiler",
		Analysis:    models.CardAnalysis{Summary: "negates on field"},
	}
	ledger.counts["user-1/card_analysis"] = 5 // already at the free limit

	result, err := svc.AnalyzeCard(context.Background(), "user-1", models.AnalyzeCardRequest{CardName: "Effect Veiler"})
	if err != nil {
		t.Fatalf("cached card read error = %v", err)
	}
	if result.Source != models.SourceCache {
		t.Fatalf("cached card source = %s, want cache", result.Source)
	}
	if gateway.cardCalls != 0 {
		t.Fatalf("cached card read must not reach the model")
	}
	if got := ledger.counts["user-1/card_analysis"]; got != 5 {
		t.Fatalf("cached card read changed the counter: %d", got)
	}
}

// Five distinct cards exhaust the free quota, the sixth distinct card is
// rejected, and a repeat of an earlier card still succeeds from cache.
func TestAnalyzeCardQuotaScenario(t *testing.T) {
	svc, _, _, gateway := newTestService(models.PlanFree)
	ctx := context.Background()

	names := []string{
		"Ash Blossom & Joyous Spring",
		"Ghost Ogre & Snow Rabbit",
		"Ghost Belle & Haunted Mansion",
		"Droll & Lock Bird",
		"Nibiru, the Primal Being",
	}
	for i, name := range names {
		result, err := svc.AnalyzeCard(ctx, "user-1", models.AnalyzeCardRequest{CardName: name})
		if err != nil {
			t.Fatalf("card %d (%s) error = %v", i+1, name, err)
		}
		if result.Source != models.SourceFresh {
			t.Fatalf("card %d source = %s, want fresh", i+1, result.Source)
		}
	}

	_, err := svc.AnalyzeCard(ctx, "user-1", models.AnalyzeCardRequest{CardName: "Infinite Impermanence"})
	var limitErr LimitReachedError
	if !errors.As(err, &limitErr) {
		t.Fatalf("sixth distinct card: err = %v, want LimitReachedError", err)
	}
	if limitErr.Operation != models.OpCardAnalysis || limitErr.Limit != 5 {
		t.Fatalf("unexpected limit error: %+v", limitErr)
	}

	// Repeat of the first card: cache hit, no quota needed.
	repeat, err := svc.AnalyzeCard(ctx, "user-1", models.AnalyzeCardRequest{CardName: names[0]})
	if err != nil {
		t.Fatalf("repeat card at limit error = %v", err)
	}
	if repeat.Source != models.SourceCache {
		t.Fatalf("repeat card source = %s, want cache", repeat.Source)
	}
	if gateway.cardCalls != 5 {
		t.Fatalf("model calls = %d, want 5", gateway.cardCalls)
	}
}

func TestAnalyzeHandChargesAfterSuccess(t *testing.T) {
	svc, _, ledger, _ := newTestService(models.PlanPremium)

	req := models.AnalyzeHandRequest{
		HandCards: []string{"a", "b", "c", "d", "e"},
		DeckList:  []string{"a", "b", "c"},
	}
	result, err := svc.AnalyzeHand(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("AnalyzeHand error = %v", err)
	}
	if result.PlanUsed != models.PlanPremium || result.Analysis.Verdict != "keep" {
		t.Fatalf("unexpected hand result: %+v", result)
	}
	if got := ledger.counts["user-1/hand_analysis"]; got != 1 {
		t.Fatalf("hand counter = %d, want 1", got)
	}
}

func TestAnalyzeHandFailureNotCharged(t *testing.T) {
	svc, _, ledger, gateway := newTestService(models.PlanFree)
	gateway.fail = fmt.Errorf("%w: bad json", ErrMalformedResponse)

	req := models.AnalyzeHandRequest{
		HandCards: []string{"a", "b", "c", "d", "e"},
		DeckList:  []string{"a"},
	}
	_, err := svc.AnalyzeHand(context.Background(), "user-1", req)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("hand failure: err = %v", err)
	}
	if got := ledger.counts["user-1/hand_analysis"]; got != 0 {
		t.Fatalf("failed hand analysis charged the user: %d", got)
	}
}

func TestAnalyzeHandLimitReached(t *testing.T) {
	svc, _, ledger, gateway := newTestService(models.PlanFree)
	ledger.counts["user-1/hand_analysis"] = 3

	req := models.AnalyzeHandRequest{
		HandCards: []string{"a", "b", "c", "d", "e"},
		DeckList:  []string{"a"},
	}
	_, err := svc.AnalyzeHand(context.Background(), "user-1", req)
	var limitErr LimitReachedError
	if !errors.As(err, &limitErr) {
		t.Fatalf("over-limit hand: err = %v, want LimitReachedError", err)
	}
	if gateway.handCalls != 0 {
		t.Fatalf("over-limit hand must not reach the model")
	}
}

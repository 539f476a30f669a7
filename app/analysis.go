// Analysis orchestrator: composes fingerprinting, cache, plan resolution,
// usage ledger and the model gateway into the per-kind request flows.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app/models"
)

// ModelGateway is the upstream AI boundary the orchestrator depends on.
type ModelGateway interface {
	AnalyzeDeck(ctx context.Context, plan models.Plan, deckList []string) (*models.DeckAnalysis, error)
	AnalyzeCard(ctx context.Context, plan models.Plan, cardName string) (*models.CardAnalysis, error)
	AnalyzeHand(ctx context.Context, plan models.Plan, handCards, deckList []string) (*models.HandAnalysis, error)
}

// AnalysisService is the orchestrator. All collaborators are injected at
// construction; request handling holds no locks and shares no state beyond
// the external stores.
type AnalysisService struct {
	cache   AnalysisCache
	ledger  UsageLedger
	plans   PlanResolver
	gateway ModelGateway
}

func NewAnalysisService(cache AnalysisCache, ledger UsageLedger, plans PlanResolver, gateway ModelGateway) *AnalysisService {
	return &AnalysisService{cache: cache, ledger: ledger, plans: plans, gateway: gateway}
}

type DeckAnalysisResult struct {
	Analysis    models.DeckAnalysis `json:"analysis"`
	Source      models.Source       `json:"source"`
	Fingerprint string              `json:"fingerprint"`
	PlanUsed    models.Plan         `json:"planUsed,omitempty"`
}

type CardAnalysisResult struct {
	Analysis    models.CardAnalysis `json:"analysis"`
	Source      models.Source       `json:"source"`
	Fingerprint string              `json:"fingerprint"`
	PlanUsed    models.Plan         `json:"planUsed,omitempty"`
}

type HandAnalysisResult struct {
	Analysis models.HandAnalysis `json:"analysis"`
	PlanUsed models.Plan         `json:"planUsed"`
}

// AnalyzeDeck is cache-first with a quota-gated refresh.
//
// Without forceRefresh the only outcomes are a cache hit or ErrNotFound: a
// plain miss never spends quota or money, the explicit refresh flag is the
// sole trigger for a model call. Cache reads are open to anonymous callers.
//
// A refresh requires an identity, a free slot under the deck quota
// (check-only), and charges the counter only after the model call and cache
// write succeed, so a failed generation never costs the user anything.
func (s *AnalysisService) AnalyzeDeck(ctx context.Context, userID string, req models.AnalyzeDeckRequest) (*DeckAnalysisResult, error) {
	fingerprint := DeckFingerprint(req.CardIDs)

	if !req.ForceRefresh {
		cached, err := s.cache.GetDeck(ctx, fingerprint)
		if err != nil {
			return nil, err
		}
		if cached == nil {
			return nil, ErrNotFound
		}
		return &DeckAnalysisResult{
			Analysis:    cached.Analysis,
			Source:      models.SourceCache,
			Fingerprint: fingerprint,
		}, nil
	}

	if userID == "" {
		return nil, ErrUnauthenticated
	}

	plan, limits, err := s.plans.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.ledger.MayProceed(ctx, userID, models.OpDeckAnalysis, limits.Deck)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, LimitReachedError{Operation: models.OpDeckAnalysis, Plan: plan, Limit: limits.Deck}
	}

	analysis, err := s.gateway.AnalyzeDeck(ctx, plan, req.DeckList)
	if err != nil {
		return nil, err
	}

	entry := models.CachedDeckAnalysis{
		Fingerprint: fingerprint,
		Analysis:    *analysis,
		DeckList:    req.DeckList,
		CardIDs:     req.CardIDs,
		Plan:        plan,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.cache.PutDeck(ctx, entry); err != nil {
		// The model call already succeeded; return the result anyway.
		log.Error().Err(err).Str("fingerprint", fingerprint).Msg("deck cache write failed")
	}
	if err := s.ledger.Consume(ctx, userID, models.OpDeckAnalysis); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("deck usage increment failed")
	}

	return &DeckAnalysisResult{
		Analysis:    *analysis,
		Source:      models.SourceFresh,
		Fingerprint: fingerprint,
		PlanUsed:    plan,
	}, nil
}

// AnalyzeCard is cache-first and pre-charges on a miss.
//
// Cache hits are free and don't touch the ledger, even for a user at their
// limit; exploration of already-analyzed cards costs nothing. On a miss the
// card quota is consumed atomically before the model call.
func (s *AnalysisService) AnalyzeCard(ctx context.Context, userID string, req models.AnalyzeCardRequest) (*CardAnalysisResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	fingerprint := CardFingerprint(req.CardName)

	cached, err := s.cache.GetCard(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &CardAnalysisResult{
			Analysis:    cached.Analysis,
			Source:      models.SourceCache,
			Fingerprint: fingerprint,
		}, nil
	}

	plan, limits, err := s.plans.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.ledger.TryConsume(ctx, userID, models.OpCardAnalysis, limits.Card)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, LimitReachedError{Operation: models.OpCardAnalysis, Plan: plan, Limit: limits.Card}
	}

	analysis, err := s.gateway.AnalyzeCard(ctx, plan, req.CardName)
	if err != nil {
		return nil, err
	}

	entry := models.CachedCardAnalysis{
		Fingerprint: fingerprint,
		CardName:    req.CardName,
		Analysis:    *analysis,
		Plan:        plan,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.cache.PutCard(ctx, entry); err != nil {
		log.Error().Err(err).Str("fingerprint", fingerprint).Msg("card cache write failed")
	}

	return &CardAnalysisResult{
		Analysis:    *analysis,
		Source:      models.SourceFresh,
		Fingerprint: fingerprint,
		PlanUsed:    plan,
	}, nil
}

// AnalyzeHand is never cached: every hand analysis is fresh. It mirrors the
// deck refresh discipline (check-only gate, model call, post-success charge)
// so a failed generation never consumes quota.
func (s *AnalysisService) AnalyzeHand(ctx context.Context, userID string, req models.AnalyzeHandRequest) (*HandAnalysisResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	plan, limits, err := s.plans.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.ledger.MayProceed(ctx, userID, models.OpHandAnalysis, limits.Hand)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, LimitReachedError{Operation: models.OpHandAnalysis, Plan: plan, Limit: limits.Hand}
	}

	analysis, err := s.gateway.AnalyzeHand(ctx, plan, req.HandCards, req.DeckList)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Consume(ctx, userID, models.OpHandAnalysis); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("hand usage increment failed")
	}

	return &HandAnalysisResult{Analysis: *analysis, PlanUsed: plan}, nil
}

// Prompt construction and response parsing for each analysis kind.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabbezeira/handtrap-api/app/models"
)

// handDeckContextMax caps how much of the deck list rides along with a hand
// analysis prompt. Hands are combinatorially numerous and never cached, so
// the context is kept cheap.
const handDeckContextMax = 40

// AnalyzeDeck asks the model for a full deck breakdown and parses the
// strict-JSON reply into a DeckAnalysis.
func (g *GeminiClient) AnalyzeDeck(ctx context.Context, plan models.Plan, deckList []string) (*models.DeckAnalysis, error) {
	prompt := deckPrompt(deckList)
	text, err := g.generate(ctx, models.OpDeckAnalysis, plan, prompt)
	if err != nil {
		return nil, err
	}
	return parseDeckAnalysis(text)
}

// AnalyzeCard asks the model for a short strategic summary of one card.
func (g *GeminiClient) AnalyzeCard(ctx context.Context, plan models.Plan, cardName string) (*models.CardAnalysis, error) {
	prompt := cardPrompt(cardName)
	text, err := g.generate(ctx, models.OpCardAnalysis, plan, prompt)
	if err != nil {
		return nil, err
	}
	return parseCardAnalysis(text)
}

// AnalyzeHand rates a five-card opening hand against a truncated deck
// context.
func (g *GeminiClient) AnalyzeHand(ctx context.Context, plan models.Plan, handCards, deckList []string) (*models.HandAnalysis, error) {
	if len(deckList) > handDeckContextMax {
		deckList = deckList[:handDeckContextMax]
	}
	prompt := handPrompt(handCards, deckList)
	text, err := g.generate(ctx, models.OpHandAnalysis, plan, prompt)
	if err != nil {
		return nil, err
	}
	return parseHandAnalysis(text)
}

func deckPrompt(deckList []string) string {
	return fmt.Sprintf(`ACT AS: a Yu-Gi-Oh! Master Duel world champion and certified judge.
CONTEXT: Master Duel format (best of 1), current banlist.

TASK: analyze the deck list below (Main Deck + Extra Deck) ruthlessly.
Compare it against the current top-tier decks; if it is weak against them,
score it low. Describe only combos that are legally possible.

DECK LIST:
%s

Reply with STRICT JSON ONLY, no markdown, exactly this shape:
{
  "meta_score": {"offense": 0-10, "consistency": 0-10, "resilience": 0-10, "control": 0-10},
  "archetype": "archetype name",
  "overview": "two-paragraph technical summary",
  "matchups": [{"deck_name": "...", "win_rate": 0-100, "strategy": "..."}],
  "strengths": ["..."],
  "weaknesses": ["..."],
  "key_combos": [{"name": "...", "steps": ["1. ...", "2. ..."]}],
  "game_plan": {"turn1": "ideal setup", "turn2": "how to break the board"},
  "suggestions": [{"card": "...", "action": "add", "quantity": 1, "reason": "..."}]
}`, strings.Join(deckList, ", "))
}

func cardPrompt(cardName string) string {
	return fmt.Sprintf(`As a Yu-Gi-Oh! world champion, analyze the card %q.
Reply with STRICT JSON ONLY:
{
  "summary": "two-line strategic summary of the card",
  "usage_moments": ["best moment to activate it", "specific interaction with meta decks"]
}`, cardName)
}

func handPrompt(handCards, deckList []string) string {
	return fmt.Sprintf(`As a Yu-Gi-Oh! world champion, evaluate this opening hand
of five cards for the deck context below.

HAND: %s
DECK (partial): %s

Reply with STRICT JSON ONLY:
{
  "playability": 0-10,
  "best_line": "the strongest sequence of plays from this hand",
  "key_interactions": ["..."],
  "verdict": "keep-or-scoop style judgement in one sentence"
}`, strings.Join(handCards, ", "), strings.Join(deckList, ", "))
}

// stripFences removes markdown code fences the model sometimes wraps its
// JSON in, despite being told not to.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parseDeckAnalysis(text string) (*models.DeckAnalysis, error) {
	var analysis models.DeckAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if analysis.Archetype == "" || analysis.Overview == "" {
		return nil, fmt.Errorf("%w: missing archetype or overview", ErrMalformedResponse)
	}
	return &analysis, nil
}

func parseCardAnalysis(text string) (*models.CardAnalysis, error) {
	var analysis models.CardAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if analysis.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrMalformedResponse)
	}
	return &analysis, nil
}

func parseHandAnalysis(text string) (*models.HandAnalysis, error) {
	var analysis models.HandAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if analysis.Verdict == "" {
		return nil, fmt.Errorf("%w: missing verdict", ErrMalformedResponse)
	}
	return &analysis, nil
}

package models

import "time"

// Source tags whether an analysis came from the cache or a fresh model call.
type Source string

const (
	SourceCache Source = "cache"
	SourceFresh Source = "fresh"
)

// MetaScore rates a deck on the four axes the prompt asks for, 0-10 each.
type MetaScore struct {
	Offense     int `json:"offense"`
	Consistency int `json:"consistency"`
	Resilience  int `json:"resilience"`
	Control     int `json:"control"`
}

type Matchup struct {
	DeckName string `json:"deck_name"`
	WinRate  int    `json:"win_rate"`
	Strategy string `json:"strategy"`
}

type Combo struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

type GamePlan struct {
	Turn1 string `json:"turn1"`
	Turn2 string `json:"turn2"`
}

type Suggestion struct {
	Card     string `json:"card"`
	Action   string `json:"action"` // "add" or "remove"
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// DeckAnalysis is the structured result of a deck analysis.
type DeckAnalysis struct {
	MetaScore   MetaScore    `json:"meta_score"`
	Archetype   string       `json:"archetype"`
	Overview    string       `json:"overview"`
	Matchups    []Matchup    `json:"matchups"`
	Strengths   []string     `json:"strengths"`
	Weaknesses  []string     `json:"weaknesses"`
	KeyCombos   []Combo      `json:"key_combos"`
	GamePlan    GamePlan     `json:"game_plan"`
	Suggestions []Suggestion `json:"suggestions"`
}

// CardAnalysis is the structured result of a single-card analysis.
type CardAnalysis struct {
	Summary      string   `json:"summary"`
	UsageMoments []string `json:"usage_moments"`
}

// HandAnalysis is the structured result of an opening-hand analysis.
// Hands are never cached.
type HandAnalysis struct {
	Playability     int      `json:"playability"`
	BestLine        string   `json:"best_line"`
	KeyInteractions []string `json:"key_interactions"`
	Verdict         string   `json:"verdict"`
}

// CachedDeckAnalysis is one row of deck_analyses, keyed by fingerprint.
// Rows are written once and never mutated; the original input is kept for
// auditability.
type CachedDeckAnalysis struct {
	Fingerprint string       `db:"fingerprint"`
	Analysis    DeckAnalysis `db:"analysis"`
	DeckList    []string     `db:"deck_list"`
	CardIDs     []int64      `db:"card_ids"`
	Plan        Plan         `db:"plan"`
	CreatedAt   time.Time    `db:"created_at"`
}

// CachedCardAnalysis is one row of card_analyses, keyed by fingerprint.
type CachedCardAnalysis struct {
	Fingerprint string       `db:"fingerprint"`
	CardName    string       `db:"card_name"`
	Analysis    CardAnalysis `db:"analysis"`
	Plan        Plan         `db:"plan"`
	CreatedAt   time.Time    `db:"created_at"`
}

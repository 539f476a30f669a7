// Result cache: append-only analysis rows keyed by fingerprint.
//
// There is no eviction and no TTL; one row per distinct input, forever. The
// cache doubles as an audit log of everything the model has produced.
// Concurrent fresh computations for the same fingerprint may both write;
// last write wins, which is acceptable because the payload is idempotent
// per fingerprint in practice.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"github.com/gabbezeira/handtrap-api/app/models"
)

// AnalysisCache reads and writes cached deck and card analyses. Get returns
// nil without error when the fingerprint is absent.
type AnalysisCache interface {
	GetDeck(ctx context.Context, fingerprint string) (*models.CachedDeckAnalysis, error)
	PutDeck(ctx context.Context, entry models.CachedDeckAnalysis) error
	GetCard(ctx context.Context, fingerprint string) (*models.CachedCardAnalysis, error)
	PutCard(ctx context.Context, entry models.CachedCardAnalysis) error
}

// PGAnalysisCache persists analyses in the deck_analyses and card_analyses
// tables, payloads as JSONB.
type PGAnalysisCache struct{}

func (PGAnalysisCache) GetDeck(ctx context.Context, fingerprint string) (*models.CachedDeckAnalysis, error) {
	if db == nil {
		return nil, nil
	}

	entry := models.CachedDeckAnalysis{Fingerprint: fingerprint}
	var payload []byte
	err := db.QueryRowContext(ctx, `
		SELECT analysis, deck_list, card_ids, plan, created_at
		FROM deck_analyses
		WHERE fingerprint = $1;
	`, fingerprint).Scan(
		&payload,
		pq.Array(&entry.DeckList),
		pq.Array(&entry.CardIDs),
		&entry.Plan,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &entry.Analysis); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (PGAnalysisCache) PutDeck(ctx context.Context, entry models.CachedDeckAnalysis) error {
	if db == nil {
		return nil
	}

	payload, err := json.Marshal(entry.Analysis)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO deck_analyses (fingerprint, analysis, deck_list, card_ids, plan, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint)
		DO UPDATE SET analysis = EXCLUDED.analysis, plan = EXCLUDED.plan, created_at = EXCLUDED.created_at;
	`, entry.Fingerprint, payload, pq.Array(entry.DeckList), pq.Array(entry.CardIDs), entry.Plan, entry.CreatedAt)
	return err
}

func (PGAnalysisCache) GetCard(ctx context.Context, fingerprint string) (*models.CachedCardAnalysis, error) {
	if db == nil {
		return nil, nil
	}

	entry := models.CachedCardAnalysis{Fingerprint: fingerprint}
	var payload []byte
	err := db.QueryRowContext(ctx, `
		SELECT card_name, analysis, plan, created_at
		FROM card_analyses
		WHERE fingerprint = $1;
	`, fingerprint).Scan(&entry.CardName, &payload, &entry.Plan, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &entry.Analysis); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (PGAnalysisCache) PutCard(ctx context.Context, entry models.CachedCardAnalysis) error {
	if db == nil {
		return nil
	}

	payload, err := json.Marshal(entry.Analysis)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO card_analyses (fingerprint, card_name, analysis, plan, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint)
		DO UPDATE SET analysis = EXCLUDED.analysis, plan = EXCLUDED.plan, created_at = EXCLUDED.created_at;
	`, entry.Fingerprint, entry.CardName, payload, entry.Plan, entry.CreatedAt)
	return err
}

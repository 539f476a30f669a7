// Daily usage ledger: per-(user, operation) counters with a UTC day boundary.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gabbezeira/handtrap-api/app/models"
)

const usageDayLayout = "2006-01-02"

// usageDayUTC returns the calendar day string that keys usage counters.
func usageDayUTC(t time.Time) string {
	return t.UTC().Format(usageDayLayout)
}

// effectiveCount treats a counter with a stale date as zero. Counters are
// never physically reset; the date comparison is the rollover.
func effectiveCount(counter models.UsageCounter, today string) int {
	if counter.Date != today {
		return 0
	}
	return counter.Count
}

// UsageLedger gates expensive operations against daily quotas.
//
// Two charging disciplines coexist on purpose:
//
//   - TryConsume is a single atomic check-and-increment; the counter can
//     never exceed the limit as observed by this primitive, but the charge
//     lands before the expensive work runs (card analysis pre-charges).
//   - MayProceed + a later Consume never charges a failed generation, at
//     the cost of a small race window: a concurrent burst can overrun the
//     limit by at most one unit per in-flight request (deck refresh and
//     hand analysis accept this).
//
// Do not unify these paths: atomic pre-charge everywhere would bill users
// for model failures.
type UsageLedger interface {
	MayProceed(ctx context.Context, userID string, op models.Operation, limit int) (bool, error)
	TryConsume(ctx context.Context, userID string, op models.Operation, limit int) (bool, error)
	Consume(ctx context.Context, userID string, op models.Operation) error
}

// PGUsageLedger stores counters in the usage_counters table, one row per
// (user, operation). The atomic variant runs as a serializable transaction
// with a row lock so the counter can never exceed the limit under
// concurrent calls for the same key.
type PGUsageLedger struct{}

func (PGUsageLedger) MayProceed(ctx context.Context, userID string, op models.Operation, limit int) (bool, error) {
	if db == nil {
		// Allow test runs without a backing DB.
		return true, nil
	}

	counter, err := readCounter(ctx, userID, op)
	if err != nil {
		return false, err
	}
	return effectiveCount(counter, usageDayUTC(time.Now())) < limit, nil
}

func (PGUsageLedger) TryConsume(ctx context.Context, userID string, op models.Operation, limit int) (bool, error) {
	if db == nil {
		return true, nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	counter, err := readCounterForUpdate(ctx, tx, userID, op)
	if err != nil {
		return false, err
	}

	today := usageDayUTC(time.Now())
	used := effectiveCount(counter, today)
	if used >= limit {
		return false, nil
	}

	if err := writeCounter(ctx, tx, userID, op, today, used+1); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (PGUsageLedger) Consume(ctx context.Context, userID string, op models.Operation) error {
	if db == nil {
		return nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	counter, err := readCounterForUpdate(ctx, tx, userID, op)
	if err != nil {
		return err
	}

	today := usageDayUTC(time.Now())
	if err := writeCounter(ctx, tx, userID, op, today, effectiveCount(counter, today)+1); err != nil {
		return err
	}
	return tx.Commit()
}

func readCounter(ctx context.Context, userID string, op models.Operation) (models.UsageCounter, error) {
	counter := models.UsageCounter{UserID: userID, Operation: op}
	err := db.QueryRowContext(ctx, `
		SELECT usage_date, count
		FROM usage_counters
		WHERE user_id = $1 AND operation = $2;
	`, userID, op).Scan(&counter.Date, &counter.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return counter, nil
	}
	if err != nil {
		return models.UsageCounter{}, err
	}
	return counter, nil
}

func readCounterForUpdate(ctx context.Context, tx *sql.Tx, userID string, op models.Operation) (models.UsageCounter, error) {
	counter := models.UsageCounter{UserID: userID, Operation: op}
	err := tx.QueryRowContext(ctx, `
		SELECT usage_date, count
		FROM usage_counters
		WHERE user_id = $1 AND operation = $2
		FOR UPDATE;
	`, userID, op).Scan(&counter.Date, &counter.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return counter, nil
	}
	if err != nil {
		return models.UsageCounter{}, err
	}
	return counter, nil
}

func writeCounter(ctx context.Context, tx *sql.Tx, userID string, op models.Operation, day string, count int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_counters (user_id, operation, usage_date, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, operation)
		DO UPDATE SET usage_date = EXCLUDED.usage_date, count = EXCLUDED.count;
	`, userID, op, day, count)
	return err
}

// readAllCounters loads every counter row for a user, for the /me summary.
func readAllCounters(ctx context.Context, userID string) (map[models.Operation]models.UsageCounter, error) {
	out := make(map[models.Operation]models.UsageCounter)
	if db == nil {
		return out, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT operation, usage_date, count
		FROM usage_counters
		WHERE user_id = $1;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		counter := models.UsageCounter{UserID: userID}
		if err := rows.Scan(&counter.Operation, &counter.Date, &counter.Count); err != nil {
			return nil, err
		}
		out[counter.Operation] = counter
	}
	return out, rows.Err()
}

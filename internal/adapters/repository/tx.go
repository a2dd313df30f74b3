package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/model"
)

// Tx is one unit of work. Nothing written through it is visible to other
// transactions until Store.WithTx commits.
type Tx struct {
	tx     *sql.Tx
	driver string
}

// Lock serializes transactions working on the same account and challenge.
// On Postgres it takes a transaction-scoped advisory lock. SQLite runs every
// transaction on a single connection, so they are already serialized.
func (t *Tx) Lock(ctx context.Context, accountID, challengeID string) error {
	if t.driver != DriverPostgres {
		return nil
	}
	_, err := t.tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		accountID+"|"+challengeID)
	if err != nil {
		return classify(fmt.Errorf("advisory lock: %w", err))
	}
	return nil
}

// Challenge loads a challenge inside the transaction.
func (t *Tx) Challenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	return getChallenge(ctx, t.tx, id)
}

// Solved reports whether the account already has a correct submission.
func (t *Tx) Solved(ctx context.Context, accountID, challengeID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE account_id = $1 AND challenge_id = $2 AND correct = 1`,
		accountID, challengeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("solved: %w", err)
	}
	return n > 0, nil
}

// CountPriorSubmissions counts logged submissions with exactly this text.
func (t *Tx) CountPriorSubmissions(ctx context.Context, accountID, challengeID, provided string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE account_id = $1 AND challenge_id = $2 AND provided = $3`,
		accountID, challengeID, provided).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count prior submissions: %w", err)
	}
	return n, nil
}

// SumPenalties returns the signed sum of the account's penalty entries for the
// challenge. The display name is not part of the key, so renaming a challenge
// keeps its budget.
func (t *Tx) SumPenalties(ctx context.Context, accountID, challengeID string) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT CAST(COALESCE(SUM(value), 0) AS BIGINT) FROM awards
		 WHERE account_id = $1 AND challenge_id = $2 AND kind = $3`,
		accountID, challengeID, model.AwardKindPenalty).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum penalties: %w", err)
	}
	return sum, nil
}

// StageAward inserts a ledger entry.
func (t *Tx) StageAward(ctx context.Context, a *model.Award) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO awards (id, account_id, team_id, challenge_id, kind, name, description, value, category, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.AccountID, a.TeamID, a.ChallengeID, a.Kind, a.Name, a.Description, a.Value, a.Category, toMillis(a.CreatedAt))
	if err != nil {
		return classify(fmt.Errorf("insert award: %w", err))
	}
	return nil
}

// LogSubmission appends to the submission log.
func (t *Tx) LogSubmission(ctx context.Context, s *model.Submission) error {
	correct := 0
	if s.Correct {
		correct = 1
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO submissions (id, account_id, team_id, challenge_id, provided, correct, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.AccountID, s.TeamID, s.ChallengeID, s.Provided, correct, toMillis(s.CreatedAt))
	if err != nil {
		return classify(fmt.Errorf("insert submission: %w", err))
	}
	return nil
}

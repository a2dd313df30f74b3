package repository

import (
	"context"
	"fmt"

	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/types"
)

// Score returns the account's score: solved challenge values plus award values.
// An unknown account scores zero.
func (s *Store) Score(ctx context.Context, accountID string) (types.ScoreSummary, error) {
	sum := types.ScoreSummary{AccountID: accountID}
	err := s.db.QueryRowContext(ctx,
		`SELECT
			CAST(COALESCE((SELECT SUM(c.value) FROM submissions sub
				JOIN challenges c ON c.id = sub.challenge_id
				WHERE sub.account_id = $1 AND sub.correct = 1), 0) AS BIGINT),
			CAST(COALESCE((SELECT SUM(a.value) FROM awards a WHERE a.account_id = $1), 0) AS BIGINT)`,
		accountID).Scan(&sum.Solves, &sum.Awards)
	if err != nil {
		return types.ScoreSummary{}, fmt.Errorf("score %s: %w", accountID, err)
	}
	sum.Total = sum.Solves + sum.Awards
	return sum, nil
}

// Scores returns the score of every account that has submitted or holds an
// award, ordered by account id. Used to rebuild the standings.
func (s *Store) Scores(ctx context.Context) ([]types.ScoreSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id,
			CAST(COALESCE(SUM(solves), 0) AS BIGINT),
			CAST(COALESCE(SUM(awards), 0) AS BIGINT)
		FROM (
			SELECT sub.account_id AS account_id,
				CASE WHEN sub.correct = 1 THEN c.value ELSE 0 END AS solves,
				0 AS awards
			FROM submissions sub JOIN challenges c ON c.id = sub.challenge_id
			UNION ALL
			SELECT account_id, 0, value FROM awards
		) ledger
		GROUP BY account_id
		ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}
	defer rows.Close()

	var out []types.ScoreSummary
	for rows.Next() {
		var sum types.ScoreSummary
		if err := rows.Scan(&sum.AccountID, &sum.Solves, &sum.Awards); err != nil {
			return nil, fmt.Errorf("scores: %w", err)
		}
		sum.Total = sum.Solves + sum.Awards
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}
	return out, nil
}

// Awards lists the account's ledger entries in the order they were written.
func (s *Store) Awards(ctx context.Context, accountID string) ([]model.Award, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, team_id, challenge_id, kind, name, description, value, category, created_at
		 FROM awards WHERE account_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("awards %s: %w", accountID, err)
	}
	defer rows.Close()

	out := []model.Award{}
	for rows.Next() {
		var (
			a  model.Award
			ms int64
		)
		if err := rows.Scan(&a.ID, &a.AccountID, &a.TeamID, &a.ChallengeID, &a.Kind, &a.Name,
			&a.Description, &a.Value, &a.Category, &ms); err != nil {
			return nil, fmt.Errorf("awards %s: %w", accountID, err)
		}
		a.CreatedAt = fromMillis(ms)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("awards %s: %w", accountID, err)
	}
	return out, nil
}

// Submissions lists the account's submissions for a challenge, oldest first.
func (s *Store) Submissions(ctx context.Context, accountID, challengeID string) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, team_id, challenge_id, provided, correct, created_at
		 FROM submissions WHERE account_id = $1 AND challenge_id = $2 ORDER BY created_at, id`,
		accountID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("submissions %s/%s: %w", accountID, challengeID, err)
	}
	defer rows.Close()

	out := []model.Submission{}
	for rows.Next() {
		var (
			sub     model.Submission
			correct int64
			ms      int64
		)
		if err := rows.Scan(&sub.ID, &sub.AccountID, &sub.TeamID, &sub.ChallengeID,
			&sub.Provided, &correct, &ms); err != nil {
			return nil, fmt.Errorf("submissions %s/%s: %w", accountID, challengeID, err)
		}
		sub.Correct = correct == 1
		sub.CreatedAt = fromMillis(ms)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("submissions %s/%s: %w", accountID, challengeID, err)
	}
	return out, nil
}

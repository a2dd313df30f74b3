package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/forfeit/internal/domain/challenge"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const challengeColumns = `id, name, category, description, type, state, value, penalty, cumulative_cap, flags_json`

// PutChallenge inserts or replaces a challenge definition.
func (s *Store) PutChallenge(ctx context.Context, c *challenge.Challenge) error {
	flags, err := json.Marshal(c.Flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO challenges (`+challengeColumns+`, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			type = excluded.type,
			state = excluded.state,
			value = excluded.value,
			penalty = excluded.penalty,
			cumulative_cap = excluded.cumulative_cap,
			flags_json = excluded.flags_json`,
		c.ID, c.Name, c.Category, c.Description, string(c.Type), string(c.State),
		c.Value, c.Penalty, c.CumulativeCap, string(flags), toMillis(time.Now()))
	if err != nil {
		return classify(fmt.Errorf("put challenge %s: %w", c.ID, err))
	}
	return nil
}

// Challenge loads a challenge by id.
func (s *Store) Challenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	return getChallenge(ctx, s.db, id)
}

// Challenges lists every challenge ordered by id.
func (s *Store) Challenges(ctx context.Context) ([]*challenge.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var out []*challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return out, nil
}

func getChallenge(ctx context.Context, q queryer, id string) (*challenge.Challenge, error) {
	row := q.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	c, err := scanChallenge(row)
	if err != nil {
		return nil, notFound(err, "challenge "+id)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChallenge(sc scanner) (*challenge.Challenge, error) {
	var (
		c         challenge.Challenge
		typ, st   string
		flagsJSON string
	)
	if err := sc.Scan(&c.ID, &c.Name, &c.Category, &c.Description, &typ, &st,
		&c.Value, &c.Penalty, &c.CumulativeCap, &flagsJSON); err != nil {
		return nil, err
	}
	c.Type = challenge.Type(typ)
	c.State = challenge.State(st)
	if err := json.Unmarshal([]byte(flagsJSON), &c.Flags); err != nil {
		return nil, fmt.Errorf("decode flags for %s: %w", c.ID, err)
	}
	return &c, nil
}

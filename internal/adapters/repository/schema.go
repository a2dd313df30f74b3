package repository

// schema is applied statement by statement; every statement is idempotent and
// valid for both SQLite and Postgres.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS challenges (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		category       TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		type           TEXT NOT NULL,
		state          TEXT NOT NULL,
		value          BIGINT NOT NULL DEFAULT 0,
		penalty        BIGINT NOT NULL DEFAULT 0,
		cumulative_cap BIGINT NOT NULL DEFAULT 0,
		flags_json     TEXT NOT NULL DEFAULT '[]',
		created_at     BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id           TEXT PRIMARY KEY,
		account_id   TEXT NOT NULL,
		team_id      TEXT NOT NULL DEFAULT '',
		challenge_id TEXT NOT NULL REFERENCES challenges(id),
		provided     TEXT NOT NULL,
		correct      INTEGER NOT NULL DEFAULT 0,
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS submissions_account_challenge_provided
		ON submissions (account_id, challenge_id, provided)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS submissions_one_solve
		ON submissions (account_id, challenge_id) WHERE correct = 1`,
	`CREATE TABLE IF NOT EXISTS awards (
		id           TEXT PRIMARY KEY,
		account_id   TEXT NOT NULL,
		team_id      TEXT NOT NULL DEFAULT '',
		challenge_id TEXT NOT NULL DEFAULT '',
		kind         TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		value        BIGINT NOT NULL,
		category     TEXT NOT NULL DEFAULT '',
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS awards_account_challenge_kind
		ON awards (account_id, challenge_id, kind)`,
}

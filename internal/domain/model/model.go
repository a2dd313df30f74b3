// Package model contains ledger records passed between layers.
package model

import (
	"strings"
	"time"
)

// Submission is one attempt in the append-only submission log.
type Submission struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	TeamID      string    `json:"team_id,omitempty"`
	ChallengeID string    `json:"challenge_id"`
	Provided    string    `json:"provided"`
	Correct     bool      `json:"correct"`
	CreatedAt   time.Time `json:"created_at"`
}

// AwardKindPenalty marks ledger entries written by the incorrect-attempt penalty.
const AwardKindPenalty = "penalty"

// Award is a signed score delta in the append-only scoring ledger.
// Penalties carry a negative Value and Kind AwardKindPenalty.
type Award struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	TeamID      string    `json:"team_id,omitempty"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Value       int64     `json:"value"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoreEvent asks the scoreboard to recompute an account's total.
type ScoreEvent struct {
	AccountID string
	At        time.Time
}

// NormalizeProvided is the canonical form used for storage and duplicate checks:
// surrounding whitespace trimmed, case preserved.
func NormalizeProvided(text string) string {
	return strings.TrimSpace(text)
}

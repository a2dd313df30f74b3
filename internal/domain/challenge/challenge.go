// Package challenge defines scored challenges and their authoring-time validation.
package challenge

import (
	"fmt"
	"regexp"
	"strings"
)

// Type selects the handler registered for a challenge.
type Type string

const (
	TypeStandard         Type = "standard"
	TypeIncorrectPenalty Type = "incorrect_penalty"
)

// FlagKind selects how a flag is matched against a submission.
type FlagKind string

const (
	FlagStatic FlagKind = "static"
	FlagRegex  FlagKind = "regex"
)

// State controls challenge visibility.
type State string

const (
	StateVisible State = "visible"
	StateHidden  State = "hidden"
)

// PenaltyNamePrefix prefixes the ledger name of every incorrect-attempt penalty.
const PenaltyNamePrefix = "Incorrect attempt penalty: "

// Flag is one accepted answer.
type Flag struct {
	Kind            FlagKind `json:"type" yaml:"type"`
	Content         string   `json:"content" yaml:"content"`
	CaseInsensitive bool     `json:"case_insensitive,omitempty" yaml:"case_insensitive,omitempty"`
}

// Challenge is the per-challenge configuration read by the attempt workflow.
// It is immutable while an attempt is being assessed.
type Challenge struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Type   `json:"type" yaml:"type"`
	State       State  `json:"state,omitempty" yaml:"state,omitempty"`

	// Value is the score granted for a correct solve.
	Value int64 `json:"value" yaml:"value"`
	// Penalty is deducted for each qualifying incorrect attempt.
	Penalty int64 `json:"penalty" yaml:"penalty"`
	// CumulativeCap bounds the total penalty per account; 0 means unlimited.
	CumulativeCap int64 `json:"cumulative_cap" yaml:"cumulative_cap"`

	Flags []Flag `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// PenaltyAwardName is the deterministic ledger name used for this challenge's penalties.
func (c *Challenge) PenaltyAwardName() string {
	return PenaltyNamePrefix + c.Name
}

// Normalize fills defaults for optional fields.
func (c *Challenge) Normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if c.Type == "" {
		c.Type = TypeStandard
	}
	if c.State == "" {
		c.State = StateVisible
	}
	for i := range c.Flags {
		if c.Flags[i].Kind == "" {
			c.Flags[i].Kind = FlagStatic
		}
	}
}

// Validate rejects configurations that must never reach assessment.
func (c *Challenge) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidChallenge)
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidChallenge)
	case c.Type != TypeStandard && c.Type != TypeIncorrectPenalty:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidChallenge, c.Type)
	case c.State != StateVisible && c.State != StateHidden:
		return fmt.Errorf("%w: unknown state %q", ErrInvalidChallenge, c.State)
	case c.Value < 0:
		return fmt.Errorf("%w: value must not be negative", ErrInvalidChallenge)
	case c.Penalty < 0:
		return fmt.Errorf("%w: penalty must not be negative", ErrInvalidChallenge)
	case c.CumulativeCap < 0:
		return fmt.Errorf("%w: cumulative_cap must not be negative", ErrInvalidChallenge)
	case len(c.Flags) == 0:
		return fmt.Errorf("%w: at least one flag is required", ErrInvalidChallenge)
	}

	for i, f := range c.Flags {
		if f.Content == "" {
			return fmt.Errorf("%w: flag %d has no content", ErrInvalidChallenge, i)
		}
		switch f.Kind {
		case FlagStatic:
		case FlagRegex:
			if _, err := regexp.Compile(f.Content); err != nil {
				return fmt.Errorf("%w: flag %d: %w", ErrInvalidChallenge, i, err)
			}
		default:
			return fmt.Errorf("%w: flag %d has unknown type %q", ErrInvalidChallenge, i, f.Kind)
		}
	}
	return nil
}

// Package evaluator decides whether a submission matches a challenge's flags.
package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/model"
)

// Messages returned for a judged submission.
const (
	MessageCorrect   = "Correct"
	MessageIncorrect = "Incorrect"
)

// Result is the verdict for one submission.
type Result struct {
	Correct bool
	Message string
}

// Evaluator judges submissions.
type Evaluator interface {
	// Evaluate compares provided against every flag of c.
	Evaluate(ctx context.Context, c *challenge.Challenge, provided string) (Result, error)
}

// Option applies a configuration option to the FlagEvaluator.
type Option func(*FlagEvaluator)

// WithoutRegexCache disables caching of compiled regex flags.
func WithoutRegexCache() Option {
	return func(e *FlagEvaluator) {
		e.cacheRegex = false
	}
}

// FlagEvaluator matches static and regex flags.
type FlagEvaluator struct {
	cacheRegex bool
	mu         sync.RWMutex
	compiled   map[string]*regexp.Regexp
}

// NewFlagEvaluator creates a flag evaluator.
func NewFlagEvaluator(opts ...Option) *FlagEvaluator {
	e := &FlagEvaluator{
		cacheRegex: true,
		compiled:   make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements Evaluator. The submission is trimmed before matching and
// the first matching flag wins.
func (e *FlagEvaluator) Evaluate(ctx context.Context, c *challenge.Challenge, provided string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	provided = model.NormalizeProvided(provided)

	for i, f := range c.Flags {
		ok, err := e.match(f, provided)
		if err != nil {
			return Result{}, fmt.Errorf("challenge %s flag %d: %w", c.ID, i, err)
		}
		if ok {
			return Result{Correct: true, Message: MessageCorrect}, nil
		}
	}
	return Result{Message: MessageIncorrect}, nil
}

func (e *FlagEvaluator) match(f challenge.Flag, provided string) (bool, error) {
	switch f.Kind {
	case challenge.FlagStatic, "":
		if f.CaseInsensitive {
			return strings.EqualFold(f.Content, provided), nil
		}
		return f.Content == provided, nil
	case challenge.FlagRegex:
		re, err := e.regex(f)
		if err != nil {
			return false, err
		}
		return re.MatchString(provided), nil
	default:
		return false, fmt.Errorf("unknown flag type %q", f.Kind)
	}
}

// regex compiles the flag anchored on both ends so it must match the whole submission.
func (e *FlagEvaluator) regex(f challenge.Flag) (*regexp.Regexp, error) {
	pattern := "^(?:" + f.Content + ")$"
	if f.CaseInsensitive {
		pattern = "(?i)" + pattern
	}
	if !e.cacheRegex {
		return regexp.Compile(pattern)
	}

	e.mu.RLock()
	re, ok := e.compiled[pattern]
	e.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.compiled[pattern] = re
	e.mu.Unlock()
	return re, nil
}

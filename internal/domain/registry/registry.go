// Package registry maps challenge types to the handlers that read, judge and
// record submissions for them. The map is built once at startup and read-only
// afterwards.
package registry

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/evaluator"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/penalty"
)

// Tx is the unit of work a handler writes into. The caller owns commit.
type Tx interface {
	penalty.UnitOfWork
	// LogSubmission appends to the submission log.
	LogSubmission(ctx context.Context, s *model.Submission) error
}

// Submission is one attempt routed to a handler.
type Submission struct {
	AccountID string
	TeamID    string
	Challenge *challenge.Challenge
	Provided  string
}

// Verdict is what Attempt tells the caller.
type Verdict struct {
	Correct bool
	Message string
	// Penalty is set for incorrect answers on penalty challenges.
	Penalty *penalty.Outcome
}

// View is the read projection of a challenge. Penalty and CumulativeCap are
// only present for penalty challenges.
type View struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Type          challenge.Type  `json:"type"`
	State         challenge.State `json:"state"`
	Value         int64           `json:"value"`
	Penalty       *int64          `json:"penalty,omitempty"`
	CumulativeCap *int64          `json:"cumulative_cap,omitempty"`
}

// Handler implements one challenge type.
type Handler interface {
	Type() challenge.Type
	// Read projects the challenge for clients.
	Read(c *challenge.Challenge) View
	// Attempt judges a submission without writing.
	Attempt(ctx context.Context, tx Tx, s Submission) (Verdict, error)
	// Solve records a correct submission.
	Solve(ctx context.Context, tx Tx, s Submission) error
	// Fail records an incorrect submission and whatever it costs.
	Fail(ctx context.Context, tx Tx, s Submission) error
}

// Registry is an explicit type -> handler map.
type Registry struct {
	handlers map[challenge.Type]Handler
}

// New builds a registry from handlers. Registering a type twice is an error.
func New(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[challenge.Type]Handler, len(handlers))}
	for _, h := range handlers {
		if _, ok := r.handlers[h.Type()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, h.Type())
		}
		r.handlers[h.Type()] = h
	}
	return r, nil
}

// Default registers the standard and incorrect_penalty handlers.
func Default(ev evaluator.Evaluator, assessor *penalty.Assessor, opts ...HandlerOption) (*Registry, error) {
	return New(
		NewStandardHandler(ev, opts...),
		NewPenaltyHandler(ev, assessor, opts...),
	)
}

// Handler returns the handler registered for t.
func (r *Registry) Handler(t challenge.Type) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return h, nil
}

// Types lists registered types in sorted order.
func (r *Registry) Types() []challenge.Type {
	types := make([]challenge.Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

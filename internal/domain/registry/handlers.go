package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/evaluator"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/penalty"
)

// HandlerOption configures the built-in handlers.
type HandlerOption func(*StandardHandler)

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *StandardHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// StandardHandler judges flags and logs submissions with no side effects on score.
type StandardHandler struct {
	evaluator evaluator.Evaluator
	now       func() time.Time
	newID     func() string
}

// NewStandardHandler creates the handler for challenge.TypeStandard.
func NewStandardHandler(ev evaluator.Evaluator, opts ...HandlerOption) *StandardHandler {
	h := &StandardHandler{evaluator: ev, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Type implements Handler.
func (h *StandardHandler) Type() challenge.Type { return challenge.TypeStandard }

// Read implements Handler.
func (h *StandardHandler) Read(c *challenge.Challenge) View {
	return View{
		ID:          c.ID,
		Name:        c.Name,
		Category:    c.Category,
		Description: c.Description,
		Type:        c.Type,
		State:       c.State,
		Value:       c.Value,
	}
}

// Attempt implements Handler.
func (h *StandardHandler) Attempt(ctx context.Context, _ Tx, s Submission) (Verdict, error) {
	res, err := h.evaluator.Evaluate(ctx, s.Challenge, s.Provided)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Correct: res.Correct, Message: res.Message}, nil
}

// Solve implements Handler.
func (h *StandardHandler) Solve(ctx context.Context, tx Tx, s Submission) error {
	return h.log(ctx, tx, s, true)
}

// Fail implements Handler.
func (h *StandardHandler) Fail(ctx context.Context, tx Tx, s Submission) error {
	return h.log(ctx, tx, s, false)
}

func (h *StandardHandler) log(ctx context.Context, tx Tx, s Submission, correct bool) error {
	sub := &model.Submission{
		ID:          h.newID(),
		AccountID:   s.AccountID,
		TeamID:      s.TeamID,
		ChallengeID: s.Challenge.ID,
		Provided:    model.NormalizeProvided(s.Provided),
		Correct:     correct,
		CreatedAt:   h.now().UTC(),
	}
	if err := tx.LogSubmission(ctx, sub); err != nil {
		return fmt.Errorf("log submission: %w", err)
	}
	return nil
}

// PenaltyHandler behaves like StandardHandler and charges incorrect attempts.
type PenaltyHandler struct {
	*StandardHandler
	assessor *penalty.Assessor
}

// NewPenaltyHandler creates the handler for challenge.TypeIncorrectPenalty.
func NewPenaltyHandler(ev evaluator.Evaluator, assessor *penalty.Assessor, opts ...HandlerOption) *PenaltyHandler {
	return &PenaltyHandler{
		StandardHandler: NewStandardHandler(ev, opts...),
		assessor:        assessor,
	}
}

// Type implements Handler.
func (h *PenaltyHandler) Type() challenge.Type { return challenge.TypeIncorrectPenalty }

// Read implements Handler and adds the penalty configuration.
func (h *PenaltyHandler) Read(c *challenge.Challenge) View {
	v := h.StandardHandler.Read(c)
	amount, budget := c.Penalty, c.CumulativeCap
	v.Penalty = &amount
	v.CumulativeCap = &budget
	return v
}

// Attempt implements Handler. An incorrect answer carries the penalty it
// would cost, read inside tx so it matches what Fail stages.
func (h *PenaltyHandler) Attempt(ctx context.Context, tx Tx, s Submission) (Verdict, error) {
	v, err := h.StandardHandler.Attempt(ctx, tx, s)
	if err != nil || v.Correct {
		return v, err
	}
	out, err := h.assessor.Preview(ctx, tx, h.attempt(s))
	if err != nil {
		return Verdict{}, err
	}
	v.Message += out.Annotation()
	v.Penalty = &out
	return v, nil
}

// Fail implements Handler. The penalty is staged before the submission is
// logged so the duplicate guard does not see the current attempt.
func (h *PenaltyHandler) Fail(ctx context.Context, tx Tx, s Submission) error {
	if _, err := h.assessor.Assess(ctx, tx, h.attempt(s)); err != nil {
		return err
	}
	return h.StandardHandler.Fail(ctx, tx, s)
}

func (h *PenaltyHandler) attempt(s Submission) penalty.Attempt {
	return penalty.Attempt{
		AccountID: s.AccountID,
		TeamID:    s.TeamID,
		Challenge: s.Challenge,
		Provided:  s.Provided,
	}
}

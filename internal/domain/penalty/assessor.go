package penalty

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/pkg/logger"
	"github.com/okian/forfeit/pkg/metrics"
)

const (
	penaltyDescription = "Penalty for incorrect response"
	cappedSuffix       = " - maximum penalty reached"
)

// Reason explains why no penalty was applied.
type Reason string

const (
	ReasonDuplicate    Reason = "duplicate"
	ReasonCapExhausted Reason = "capExhausted"
	ReasonZeroPenalty  Reason = "zeroPenalty"
)

// Outcome is the result of assessing one incorrect attempt.
type Outcome struct {
	Applied bool   `json:"applied"`
	Amount  int64  `json:"amount"`
	Capped  bool   `json:"capped"`
	Reason  Reason `json:"reason,omitempty"`
}

// Annotation is appended to the evaluator's message for an incorrect answer.
func (o Outcome) Annotation() string {
	switch {
	case o.Reason == ReasonDuplicate:
		return ": already attempted"
	case o.Capped:
		return ": max penalty applied"
	case o.Applied:
		return ": " + strconv.FormatInt(o.Amount, 10) + " point penalty assessed"
	default:
		return ""
	}
}

// label is the metrics label for the outcome.
func (o Outcome) label() string {
	switch {
	case o.Reason == ReasonDuplicate:
		return "duplicate"
	case o.Reason == ReasonCapExhausted:
		return "cap_exhausted"
	case o.Reason == ReasonZeroPenalty:
		return "zero_penalty"
	case o.Capped:
		return "capped"
	default:
		return "applied"
	}
}

// Attempt identifies the incorrect submission being assessed.
type Attempt struct {
	AccountID string
	TeamID    string
	Challenge *challenge.Challenge
	// Provided is the submission text; it is normalized before lookup.
	Provided string
}

// UnitOfWork is the transactional view the assessor reads from and stages into.
// Nothing staged becomes durable unless the owner of the unit of work commits.
type UnitOfWork interface {
	// CountPriorSubmissions counts logged submissions with exactly this text.
	// The current attempt must not be logged yet.
	CountPriorSubmissions(ctx context.Context, accountID, challengeID, provided string) (int, error)
	// SumPenalties returns the signed sum of the account's penalty entries for
	// the challenge, or 0 when there are none.
	SumPenalties(ctx context.Context, accountID, challengeID string) (int64, error)
	// StageAward appends a ledger entry to the unit of work.
	StageAward(ctx context.Context, award *model.Award) error
}

// Assessor runs the duplicate guard and the penalty policy for incorrect attempts.
type Assessor struct {
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithLogger sets the assessor logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assessor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the timestamp source for staged awards.
func WithClock(now func() time.Time) Option {
	return func(a *Assessor) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssessor creates an Assessor.
func NewAssessor(opts ...Option) *Assessor {
	a := &Assessor{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Named("penalty")
	}
	return a
}

// Preview returns the outcome Assess would produce without staging anything.
func (a *Assessor) Preview(ctx context.Context, uow UnitOfWork, at Attempt) (Outcome, error) {
	out, _, err := a.decide(ctx, uow, at)
	return out, err
}

// Assess decides the penalty for an incorrect attempt and stages the ledger
// entry in uow when one is owed. It never commits.
func (a *Assessor) Assess(ctx context.Context, uow UnitOfWork, at Attempt) (Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAssessmentLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	out, provided, err := a.decide(ctx, uow, at)
	if err != nil {
		metrics.RecordErrorByComponent("penalty", "assess")
		return Outcome{}, err
	}
	metrics.RecordAssessment(out.label())

	if !out.Applied {
		a.logger.Debug(ctx, "no penalty staged",
			logger.String("account", at.AccountID),
			logger.String("challenge", at.Challenge.ID),
			logger.String("reason", string(out.Reason)),
		)
		return out, nil
	}

	description := penaltyDescription
	if out.Capped {
		description += cappedSuffix
	}
	award := &model.Award{
		ID:          a.newID(),
		AccountID:   at.AccountID,
		TeamID:      at.TeamID,
		ChallengeID: at.Challenge.ID,
		Kind:        model.AwardKindPenalty,
		Name:        at.Challenge.PenaltyAwardName(),
		Description: description,
		Value:       -out.Amount,
		Category:    at.Challenge.Category,
		CreatedAt:   a.now().UTC(),
	}
	if err := uow.StageAward(ctx, award); err != nil {
		metrics.RecordErrorByComponent("penalty", "stage")
		return Outcome{}, fmt.Errorf("stage penalty for %s/%s: %w", at.AccountID, at.Challenge.ID, err)
	}
	metrics.RecordPenaltyPoints(out.Amount)

	a.logger.Info(ctx, "penalty staged",
		logger.String("account", at.AccountID),
		logger.String("challenge", at.Challenge.ID),
		logger.Int64("amount", out.Amount),
		logger.Bool("capped", out.Capped),
		logger.String("provided", provided),
	)
	return out, nil
}

// decide runs the duplicate guard, then the policy. The guard wins over the cap.
func (a *Assessor) decide(ctx context.Context, uow UnitOfWork, at Attempt) (Outcome, string, error) {
	if at.Challenge == nil {
		return Outcome{}, "", ErrNoChallenge
	}
	provided := model.NormalizeProvided(at.Provided)
	if provided == "" {
		return Outcome{}, "", ErrMissingSubmission
	}

	prior, err := uow.CountPriorSubmissions(ctx, at.AccountID, at.Challenge.ID, provided)
	if err != nil {
		return Outcome{}, provided, fmt.Errorf("count prior submissions: %w", err)
	}
	if prior > 0 {
		return Outcome{Reason: ReasonDuplicate}, provided, nil
	}

	sum, err := uow.SumPenalties(ctx, at.AccountID, at.Challenge.ID)
	if err != nil {
		return Outcome{}, provided, fmt.Errorf("sum penalties: %w", err)
	}
	if sum < 0 {
		sum = -sum
	}

	d := Compute(at.Challenge, sum)
	switch {
	case d.Amount > 0:
		return Outcome{Applied: true, Amount: d.Amount, Capped: d.Capped}, provided, nil
	case d.Capped:
		return Outcome{Capped: true, Reason: ReasonCapExhausted}, provided, nil
	default:
		return Outcome{Reason: ReasonZeroPenalty}, provided, nil
	}
}

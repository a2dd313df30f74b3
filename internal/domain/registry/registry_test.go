package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/evaluator"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/penalty"
	"github.com/okian/forfeit/internal/domain/registry"
	"github.com/okian/forfeit/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() { //nolint:gochecknoinits // test logger setup
	_ = logger.Init()
}

type fakeTx struct {
	submissions []model.Submission
	awards      []model.Award
}

func (f *fakeTx) CountPriorSubmissions(_ context.Context, accountID, challengeID, provided string) (int, error) {
	n := 0
	for _, s := range f.submissions {
		if s.AccountID == accountID && s.ChallengeID == challengeID && s.Provided == provided {
			n++
		}
	}
	return n, nil
}

func (f *fakeTx) SumPenalties(_ context.Context, accountID, challengeID string) (int64, error) {
	var sum int64
	for _, a := range f.awards {
		if a.AccountID == accountID && a.ChallengeID == challengeID && a.Kind == model.AwardKindPenalty {
			sum += a.Value
		}
	}
	return sum, nil
}

func (f *fakeTx) StageAward(_ context.Context, a *model.Award) error {
	f.awards = append(f.awards, *a)
	return nil
}

func (f *fakeTx) LogSubmission(_ context.Context, s *model.Submission) error {
	f.submissions = append(f.submissions, *s)
	return nil
}

func penaltyChallenge() *challenge.Challenge {
	return &challenge.Challenge{
		ID:            "web-1",
		Name:          "Cookie Jar",
		Category:      "web",
		Type:          challenge.TypeIncorrectPenalty,
		State:         challenge.StateVisible,
		Value:         100,
		Penalty:       10,
		CumulativeCap: 25,
		Flags:         []challenge.Flag{{Kind: challenge.FlagStatic, Content: "flag{ok}"}},
	}
}

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r, err := registry.Default(evaluator.NewFlagEvaluator(), penalty.NewAssessor())
		So(err, ShouldBeNil)

		Convey("Then both types are registered", func() {
			So(r.Types(), ShouldResemble, []challenge.Type{challenge.TypeIncorrectPenalty, challenge.TypeStandard})
		})

		Convey("Then an unknown type is rejected", func() {
			_, err := r.Handler("dynamic")
			So(errors.Is(err, registry.ErrUnknownType), ShouldBeTrue)
		})
	})

	Convey("Given two handlers for the same type", t, func() {
		ev := evaluator.NewFlagEvaluator()
		_, err := registry.New(registry.NewStandardHandler(ev), registry.NewStandardHandler(ev))

		Convey("Then building the registry fails", func() {
			So(errors.Is(err, registry.ErrDuplicateType), ShouldBeTrue)
		})
	})
}

func TestPenaltyHandlerRead(t *testing.T) {
	Convey("Given a penalty challenge with a cap of 0", t, func() {
		c := penaltyChallenge()
		c.CumulativeCap = 0
		h := registry.NewPenaltyHandler(evaluator.NewFlagEvaluator(), penalty.NewAssessor())

		Convey("When it is read", func() {
			raw, err := json.Marshal(h.Read(c))
			So(err, ShouldBeNil)

			Convey("Then penalty and cumulative_cap are present", func() {
				var got map[string]any
				So(json.Unmarshal(raw, &got), ShouldBeNil)
				So(got["penalty"], ShouldEqual, 10)
				So(got["cumulative_cap"], ShouldEqual, 0)
				So(got["value"], ShouldEqual, 100)
			})
		})
	})

	Convey("Given a standard challenge", t, func() {
		c := penaltyChallenge()
		c.Type = challenge.TypeStandard
		h := registry.NewStandardHandler(evaluator.NewFlagEvaluator())

		Convey("Then the projection omits penalty fields", func() {
			raw, err := json.Marshal(h.Read(c))
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "penalty")
			So(string(raw), ShouldNotContainSubstring, "cumulative_cap")
		})
	})
}

func TestPenaltyHandlerFlow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a penalty handler and an empty ledger", t, func() {
		h := registry.NewPenaltyHandler(evaluator.NewFlagEvaluator(), penalty.NewAssessor())
		c := penaltyChallenge()
		tx := &fakeTx{}
		run := func(text string) registry.Verdict {
			s := registry.Submission{AccountID: "acct-1", Challenge: c, Provided: text}
			v, err := h.Attempt(ctx, tx, s)
			So(err, ShouldBeNil)
			if v.Correct {
				So(h.Solve(ctx, tx, s), ShouldBeNil)
			} else {
				So(h.Fail(ctx, tx, s), ShouldBeNil)
			}
			return v
		}

		Convey("When wrong answers are submitted past the cap", func() {
			msgs := []string{run("a").Message, run("b").Message, run("c").Message, run("a").Message}

			Convey("Then each message carries its annotation", func() {
				So(msgs, ShouldResemble, []string{
					"Incorrect: 10 point penalty assessed",
					"Incorrect: 10 point penalty assessed",
					"Incorrect: max penalty applied",
					"Incorrect: already attempted",
				})
			})

			Convey("Then every submission is logged and three penalties are staged", func() {
				So(len(tx.submissions), ShouldEqual, 4)
				So(len(tx.awards), ShouldEqual, 3)
			})
		})

		Convey("When the flag is correct", func() {
			v := run("flag{ok}")

			Convey("Then the solve is logged with no penalty", func() {
				So(v.Correct, ShouldBeTrue)
				So(v.Message, ShouldEqual, "Correct")
				So(v.Penalty, ShouldBeNil)
				So(tx.awards, ShouldBeEmpty)
				So(tx.submissions[0].Correct, ShouldBeTrue)
			})
		})
	})

	Convey("Given a standard handler", t, func() {
		h := registry.NewStandardHandler(evaluator.NewFlagEvaluator())
		c := penaltyChallenge()
		c.Type = challenge.TypeStandard
		tx := &fakeTx{}
		s := registry.Submission{AccountID: "acct-1", Challenge: c, Provided: "wrong"}

		Convey("When a wrong answer fails", func() {
			v, err := h.Attempt(ctx, tx, s)
			So(err, ShouldBeNil)
			So(h.Fail(ctx, tx, s), ShouldBeNil)

			Convey("Then it is logged without a penalty", func() {
				So(v.Message, ShouldEqual, "Incorrect")
				So(len(tx.submissions), ShouldEqual, 1)
				So(tx.awards, ShouldBeEmpty)
			})
		})
	})
}

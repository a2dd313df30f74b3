package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/forfeit/internal/adapters/repository"
	service "github.com/okian/forfeit/internal/app"
	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/pkg/logger"
)

type simulateFlags struct {
	value   int64
	penalty int64
	limit   int64
	flag    string
	name    string
	verbose bool
}

func newSimulateCmd() *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate <submission>...",
		Short: "Replay submissions against a throwaway penalty challenge and print each outcome",
		Example: `  forfeitctl simulate --penalty 10 --cap 25 a b c a
  forfeitctl simulate --penalty 10 --value 100 x y z flag{ok}`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f, args)
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&f.value, "value", 100, "Points for solving")
	flags.Int64Var(&f.penalty, "penalty", 10, "Points deducted per incorrect attempt")
	flags.Int64Var(&f.limit, "cap", 0, "Cumulative penalty cap; 0 is unlimited")
	flags.StringVar(&f.flag, "flag", "flag{ok}", "Correct answer")
	flags.StringVar(&f.name, "name", "Simulated", "Challenge name")
	flags.BoolVar(&f.verbose, "verbose", false, "Log service activity to stderr")
	return cmd
}

func runSimulate(ctx context.Context, out, errOut io.Writer, f *simulateFlags, submissions []string) error {
	logOut := io.Discard
	if f.verbose {
		logOut = errOut
	}
	if err := logger.InitWith(logOut, logger.FormatText); err != nil {
		return err
	}
	_ = logger.SetLevelString("debug")

	store, err := repository.Open(ctx, repository.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	svc, err := service.New(store)
	if err != nil {
		return err
	}
	view, err := svc.CreateChallenge(ctx, challenge.Challenge{
		ID:            "sim",
		Name:          f.name,
		Category:      "simulation",
		Type:          challenge.TypeIncorrectPenalty,
		Value:         f.value,
		Penalty:       f.penalty,
		CumulativeCap: f.limit,
		Flags:         []challenge.Flag{{Kind: challenge.FlagStatic, Content: f.flag}},
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tSUBMISSION\tSTATUS\tCHARGED\tMESSAGE\n")
	for i, s := range submissions {
		res, err := svc.Attempt(ctx, service.AttemptRequest{
			ChallengeID: view.ID,
			AccountID:   "simulator",
			Submission:  s,
		})
		if err != nil {
			return fmt.Errorf("attempt %d: %w", i+1, err)
		}
		var charged int64
		if res.Penalty != nil && res.Penalty.Applied {
			charged = res.Penalty.Amount
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, s, res.Status, charged, res.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum, err := svc.Score(ctx, "simulator")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "score: %d (solves %d, awards %d)\n", sum.Total, sum.Solves, sum.Awards)
	return nil
}

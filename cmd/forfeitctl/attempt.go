package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type attemptFlags struct {
	server    string
	challenge string
	account   string
	team      string
	requestID string
	timeout   time.Duration
}

func newAttemptCmd() *cobra.Command {
	f := &attemptFlags{}
	cmd := &cobra.Command{
		Use:   "attempt <submission>",
		Short: "Submit an answer to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttempt(cmd, f, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.server, "server", "http://localhost:9080", "Base URL of the forfeit server")
	flags.StringVar(&f.challenge, "challenge", "", "Challenge id")
	flags.StringVar(&f.account, "account", "", "Account id")
	flags.StringVar(&f.team, "team", "", "Team id")
	flags.StringVar(&f.requestID, "request-id", "", "Idempotency key; generated when empty")
	flags.DurationVar(&f.timeout, "timeout", 10*time.Second, "Request timeout")
	_ = cmd.MarkFlagRequired("challenge")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func runAttempt(cmd *cobra.Command, f *attemptFlags, submission string) error {
	if f.requestID == "" {
		f.requestID = uuid.NewString()
	}
	body, err := json.Marshal(map[string]string{
		"account_id": f.account,
		"team_id":    f.team,
		"submission": submission,
		"request_id": f.requestID,
	})
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(f.server, "/") + "/challenges/" + url.PathEscape(f.challenge) + "/attempts"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: f.timeout}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post attempt: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", res.Status, strings.TrimSpace(string(out)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
	return nil
}

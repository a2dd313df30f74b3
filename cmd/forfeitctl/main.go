// Command forfeitctl runs admin and diagnostic tasks against a forfeit deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forfeitctl",
		Short:         "Admin tooling for the forfeit scoring service",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newMigrateCmd(), newCatalogCmd(), newAttemptCmd(), newSimulateCmd())
	return root
}

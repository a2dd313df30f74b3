package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/forfeit/internal/adapters/repository"
	"github.com/okian/forfeit/internal/catalog"
	"github.com/okian/forfeit/internal/config"
	"github.com/okian/forfeit/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema using FORFEIT_* configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if err := logger.InitWith(cmd.ErrOrStderr(), logger.Format(cfg.LogFormat)); err != nil {
				return err
			}
			_ = logger.SetLevelString(cfg.LogLevel)

			store, err := repository.Open(ctx, cfg.DBDriver, cfg.DSN(),
				repository.WithMaxOpenConns(cfg.DBMaxOpenConns),
				repository.WithConnMaxLifetime(cfg.DBConnMaxLifetime),
			)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", store.Driver())
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with challenge catalog files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			challenges, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			for _, c := range challenges {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-18s value=%d penalty=%d cap=%d\n",
					c.ID, c.Type, c.Value, c.Penalty, c.CumulativeCap)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d challenges ok\n", len(challenges))
			return nil
		},
	})
	return cmd
}

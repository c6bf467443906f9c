package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/bitebuzz/internal/app"
	"github.com/Clark-Hu/bitebuzz/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema (feedback_votes table and change trigger)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.DBURL == "" {
			return fmt.Errorf("DB_URL is required for migrate")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		st, err := app.OpenStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

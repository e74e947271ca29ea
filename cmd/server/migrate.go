package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/and161185/taskboard/internal/migrate"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DB.DSN == "" {
				return errors.New("db.dsn is required")
			}
			ctx := cmd.Context()
			if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			v, err := migrate.Version(ctx, cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return nil
		},
	}
}

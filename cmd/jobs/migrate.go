package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NickArm/Invoice-System-sub001/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.ConnectionString())
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

			return nil
		},
	}
}

// cmd/paymentsctl/migrate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/inkwell-backend/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payments schema and seed the platform fee",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.RunMigrations(db); err != nil {
				return err
			}
			if err := database.SeedInitialData(db, cfg.Payment); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations complete")
			return nil
		},
	}
}

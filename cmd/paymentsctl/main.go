// cmd/paymentsctl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/database"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paymentsctl",
		Short:         "Operate the exclusive-post payments ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(feeCmd())

	return rootCmd
}

// connect loads configuration from the environment and opens the database.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ConfigureLogging()

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

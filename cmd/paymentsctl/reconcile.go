// cmd/paymentsctl/reconcile.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/inkwell-backend/internal/database"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/services"
)

var errUnbalanced = errors.New("ledger is not balanced")

func reconcileCmd() *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check wallet balances and completed purchases against the transaction log",
		Long: `Recompute every wallet balance from its transactions and check that each
completed purchase was credited exactly its amount.

The report is printed as JSON. The command exits non-zero when any
discrepancy is found.

Examples:
  paymentsctl reconcile
  paymentsctl reconcile --archive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			ctx := cmd.Context()
			report, err := services.NewReconcileService(repository.NewStore(db)).Run(ctx)
			if err != nil {
				return err
			}

			body, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))

			if archive {
				storage, err := services.NewStorageService(cfg.AWS)
				if err != nil {
					return err
				}
				name := fmt.Sprintf("reconcile-%s.json", report.GeneratedAt.Format("20060102T150405Z"))
				result, err := storage.ArchiveReport(ctx, name, body)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Report archived to %s\n", result.Location)
			}

			if !report.Balanced() {
				return errUnbalanced
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "upload the report to the reports bucket")

	return cmd
}

// cmd/paymentsctl/fee.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javajoker/inkwell-backend/internal/database"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/services"
)

func feeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Read or change the platform fee percentage",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the platform fee applied to the next verification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(func(settings *services.SettingsService) error {
				fee, err := settings.PlatformFeePercent(cmd.Context(), nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%%\n", fee.String())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <percent>",
		Short:   "Change the platform fee; completed sales keep the rate they settled at",
		Example: "  paymentsctl fee set 12.5",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(func(settings *services.SettingsService) error {
				fee, err := settings.SetPlatformFeePercent(cmd.Context(), args[0], nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Platform fee set to %s%%\n", fee.String())
				return nil
			})
		},
	})

	return cmd
}

func withSettings(fn func(*services.SettingsService) error) error {
	cfg, db, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	defaultFee, err := cfg.Payment.DefaultFeePercent()
	if err != nil {
		return err
	}
	return fn(services.NewSettingsService(repository.NewStore(db), defaultFee))
}

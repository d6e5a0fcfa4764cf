package main

import (
	"context"
	"fmt"
	"time"

	dbpostgres "jobtracker/internal/database/postgres"
	"jobtracker/internal/database/seeder"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <email>",
	Short: "Fill an empty account with sample applications",
	Long: `Create the account for email if needed and add one sample application
per status. Accounts that already have applications are not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		db, err := dbpostgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := (seeder.Runner{Seeders: seeder.Defaults(args[0])}).Run(ctx, db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo applications for %s.\n", args[0])
		return nil
	},
}

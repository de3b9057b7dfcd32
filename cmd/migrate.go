package cmd

import (
	"context"
	"fmt"

	"github.com/example/travelbook/internal/config"
	"github.com/example/travelbook/internal/db"
	"github.com/example/travelbook/internal/migrate"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dryRun bool

	c := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres profile store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				names, err := migrate.Pending()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	c.Flags().BoolVar(&dryRun, "list", false, "list embedded migrations without applying them")
	return c
}

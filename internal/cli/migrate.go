package cli

import (
	"fmt"

	"github.com/offolaunch/launchtrack/db"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, sqlDB, err := connect(opts.Config, opts.Logger)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := db.MigrateDatabase(conn); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			opts.Logger.Infow("database migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

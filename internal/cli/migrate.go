package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Astrolithia/qvtu-shopping/migrations"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Apply every embedded migration not yet recorded in schema_migrations. With --dry-run the embedded files are listed and nothing is executed.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if dryRun {
				names, err := database.PendingMigrations(migrations.FS)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Embedded migrations:")
				for _, name := range names {
					fmt.Fprintf(out, "  %s\n", name)
				}
				return nil
			}

			db, closeDB, err := connect(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer closeDB()

			applied, err := database.RunMigrations(cmd.Context(), db, migrations.FS, opts.logger)
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			if applied == 0 {
				fmt.Fprintln(out, "Database is up to date.")
				return nil
			}
			fmt.Fprintf(out, "Applied %d migration(s).\n", applied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list migrations without applying them")
	return cmd
}

// Package cli implements shopctl, the operator command line for the
// shopping service.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Astrolithia/qvtu-shopping/internal/config"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	"github.com/Astrolithia/qvtu-shopping/pkg/logger"
)

var (
	loadConfig = config.Load

	// connect opens the database pool. Tests replace it.
	connect = func(ctx context.Context, cfg *config.Config, log *slog.Logger) (database.DBTX, func(), error) {
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
		if err != nil {
			return nil, nil, err
		}
		return pool, pool.Close, nil
	}
)

type rootOptions struct {
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
}

// NewRootCommand builds the shopctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "shopctl",
		Short: "Operator tool for the qvtu shopping service",
		Long: `shopctl manages the shopping service database.

Configuration is read from the same environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			level := opts.logLevel
			if level == "" {
				level = cfg.LogLevel
			}
			opts.cfg = cfg
			opts.logger = logger.NewWithWriter("shopctl", level, cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newCreateAdminCmd(opts))
	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs shopctl with the process arguments.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

package cli

import (
	"fmt"

	"github.com/offolaunch/launchtrack/internal/config"
	"github.com/offolaunch/launchtrack/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// RootOptions holds state shared by every subcommand.
type RootOptions struct {
	LogLevel string

	Config *config.Config
	Logger *zap.SugaredLogger
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "launchtrack",
		Short:         "LaunchTrack permit tracking server",
		Long:          "Tracks permits and inspections for business launches and keeps them in sync with government agencies.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			opts.Config = cfg
			opts.Logger = logger.New(cfg.LogLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info), overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))

	return cmd
}

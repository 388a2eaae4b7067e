package commands

import (
	"github.com/spf13/cobra"

	"tally/internal/buildinfo"
	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/log"
)

// env is what every subcommand receives once configuration has loaded.
type env struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var (
		envFile  string
		logLevel string
		e        = &env{}
	)

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Personal expense tracker",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				cli.LoadEnvFile(envFile)
			}
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			e.cfg = cfg
			// Results go to stdout, so logs stay on stderr.
			e.logger = cli.SetupLoggerTo(cfg.LogLevel, cmd.ErrOrStderr()).WithComponent(log.ComponentCLI)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(e),
		newAddCommand(e),
		newListCommand(e),
		newDeleteCommand(e),
		newBalanceCommand(e),
		newSummaryCommand(e),
		newExportCommand(e),
		newArchiveCommand(e),
	)

	return rootCmd
}

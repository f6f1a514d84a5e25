package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yairfalse/kaksonen/internal/app"
	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kaksonen",
		Short: "Clone a running MySQL server into a new replica",
		Long: `kaksonen clones a running MySQL server onto another host over SSH.

The backup is streamed from the source straight to a receiver on the
destination, so neither side stages the full copy on disk. The option file
hierarchy is copied along with a server id derived from the destination
address, and once the redo log is applied the destination is pointed at its
source with the binlog coordinates the backup is consistent with.

TYPICAL RUN:
  # on the destination: ncat -l 9990 | xbstream -x -C /var/lib/mysql
  kaksonen clone         --source db1 --dest db2 --port 9990 --compress
  kaksonen clone-config  --source db1 --dest db2
  kaksonen apply         --dest db2 --target-dir /var/lib/mysql
  kaksonen setup-replica --dest db2 --master db1 --master-user repl \
                         --binlog mysql-bin.000005 --binlog-pos 1543`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				runVersion(cmd, []string{})
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kaksonen/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging in JSON")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("output", "table", "output format (table, json, yaml)")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.Flags().Bool("version", false, "show version information")

	viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.format", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("output.no_color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.AddCommand(newCloneCommand())
	cmd.AddCommand(newCloneConfigCommand())
	cmd.AddCommand(newApplyCommand())
	cmd.AddCommand(newSetupReplicaCommand())
	cmd.AddCommand(newServerIDCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the root command and exits with a code matching the error
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		kerrors.DisplayError(err)
		os.Exit(kerrors.GetExitCode(err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return kerrors.ConfigurationError("failed to load configuration").WithCause(err.Error())
	}

	if err := cfg.ExpandPaths(); err != nil {
		return kerrors.ConfigurationError("failed to expand config paths").WithCause(err.Error())
	}

	return nil
}

// newApp builds the application for one command run
func newApp(cmd *cobra.Command) (*app.App, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	factory := &app.AppFactory{Out: cmd.OutOrStdout()}
	return factory.Create(cfg, app.Options{Debug: debug})
}

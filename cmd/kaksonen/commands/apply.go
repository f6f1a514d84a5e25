package commands

import (
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Prepare a received backup and print its binlog coordinates",
		Long: `Apply replays the redo log of a received backup with half of the
destination's available memory, hands the data directory to
mysql.service_account and prints the binlog file and position the backup is
consistent with.`,
		Example: `  kaksonen apply --dest db2 --target-dir /var/lib/mysql
  kaksonen apply --dest db2 --target-dir /var/lib/mysql --output yaml`,
		RunE: runApply,
	}

	cmd.Flags().String("dest", "", "host holding the received backup")
	cmd.Flags().String("target-dir", "", "directory the backup was extracted to")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("target-dir")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	targetDir, _ := cmd.Flags().GetString("target-dir")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter, err := a.Formatter()
	if err != nil {
		return err
	}

	stop := startSpinner(a, "applying redo log on "+dest)
	coordinates, err := a.Finalizer(a.Executor(dest)).Apply(cmd.Context(), targetDir)
	stop()
	if err != nil {
		return err
	}

	return formatter.FormatCoordinates(coordinates, a.Out())
}

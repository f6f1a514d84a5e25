package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kaksonen/internal/output"
)

func newCloneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Stream a backup of the source server to a waiting receiver",
		Long: `Clone runs xtrabackup on the source host and pipes its xbstream output,
optionally compressed, to a receiver already listening on the destination.

The capture error log stays on the source host for inspection. When
mysql.defaults_file exists locally it is copied to the source for the
duration of the capture and removed afterwards.`,
		Example: `  # Start the receiver first
  ssh db2 'ncat -l 9990 | xbstream -x -C /var/lib/mysql'

  kaksonen clone --source db1 --dest db2 --port 9990

  # Compressed transfer
  kaksonen clone --source db1 --dest db2 --port 9990 --compress`,
		RunE: runClone,
	}

	cmd.Flags().String("source", "", "host running the server to back up")
	cmd.Flags().String("dest", "", "host receiving the backup")
	cmd.Flags().Int("port", 0, "port the receiver listens on")
	cmd.Flags().Bool("compress", false, "compress the stream in transit")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("port")

	return cmd
}

func runClone(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	dest, _ := cmd.Flags().GetString("dest")
	port, _ := cmd.Flags().GetInt("port")
	compress, _ := cmd.Flags().GetBool("compress")

	if port <= 0 || port > 65535 {
		return invalidFlag("port", fmt.Sprintf("%d is not a valid port", port))
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter, err := a.Formatter()
	if err != nil {
		return err
	}

	streamer := a.Streamer(a.Executor(source))
	stop := startSpinner(a, "streaming backup from "+source)
	_, err = streamer.Clone(cmd.Context(), dest, port, compress)
	stop()
	if err != nil {
		return err
	}

	return formatter.FormatClone(output.CloneItem{
		Source:      source,
		Destination: fmt.Sprintf("%s:%d", dest, port),
		Compressed:  compress,
		ErrorLog:    streamer.ErrorLogPath(dest, port),
	}, a.Out())
}

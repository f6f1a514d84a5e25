package commands

import (
	"github.com/spf13/cobra"
)

func newCloneConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone-config",
		Short: "Copy the source's option files to the destination",
		Long: `Clone-config finds the source's root my.cnf among mysql.config_candidates,
follows every !include and !includedir directive and writes each file to the
same path on the destination.

A server id derived from the destination's IPv4 address is written into
exactly one file: the first one already setting server_id or server-id, or
else the first one with a [mysqld] group. Files that cannot be parsed are
copied verbatim.`,
		Example: `  kaksonen clone-config --source db1 --dest db2
  kaksonen clone-config --source db1 --dest db2 --output json`,
		RunE: runCloneConfig,
	}

	cmd.Flags().String("source", "", "host to read option files from")
	cmd.Flags().String("dest", "", "host to write option files to")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")

	return cmd
}

func runCloneConfig(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	dest, _ := cmd.Flags().GetString("dest")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter, err := a.Formatter()
	if err != nil {
		return err
	}

	tree := a.Tree(a.Executor(source))
	report, err := a.Replicator().CloneConfig(cmd.Context(), tree, a.Config().MySQL.ConfigCandidates, a.Executor(dest))
	if err != nil {
		return err
	}

	return formatter.FormatReport(report, a.Out())
}

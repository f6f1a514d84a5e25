package commands

import (
	"github.com/spf13/cobra"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/mycnf"
	"github.com/yairfalse/kaksonen/internal/output"
)

func newServerIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server-id HOST",
		Short: "Print the server id derived from a host's IPv4 address",
		Args:  cobra.ExactArgs(1),
		RunE:  runServerID,
	}
}

func runServerID(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	formatter, err := a.Formatter()
	if err != nil {
		return err
	}

	id, err := mycnf.ServerID(cmd.Context(), nil, args[0])
	if err != nil {
		return kerrors.Wrap(kerrors.ErrorTypeConfiguration, err, "cannot derive server id").WithHost(args[0])
	}

	return formatter.FormatServerID(output.ServerIDItem{Host: args[0], ServerID: id}, a.Out())
}

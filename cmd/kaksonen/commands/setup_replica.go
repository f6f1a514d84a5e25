package commands

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/output"
	"github.com/yairfalse/kaksonen/internal/replication"
	"github.com/yairfalse/kaksonen/internal/snapshot"
)

func newSetupReplicaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup-replica",
		Short: "Point the destination server at its source and start replication",
		Long: `Setup-replica connects to MySQL on the destination with mysql.user and
mysql.password, issues CHANGE MASTER TO with the given coordinates and starts
replication.

The replication password is read from --master-password, or prompted for
when stdin is a terminal. The command exits non-zero when replication could
not be started.`,
		Example: `  kaksonen setup-replica --dest db2 --master db1 --master-user repl \
    --binlog mysql-bin.000005 --binlog-pos 1543`,
		RunE: runSetupReplica,
	}

	cmd.Flags().String("dest", "", "host of the new replica")
	cmd.Flags().String("master", "", "host of the replication source")
	cmd.Flags().Int("master-port", 3306, "port of the replication source")
	cmd.Flags().String("master-user", "", "replication account on the source")
	cmd.Flags().String("master-password", "", "replication password (prompted when empty)")
	cmd.Flags().String("binlog", "", "binlog file to start from")
	cmd.Flags().Uint64("binlog-pos", 0, "binlog position to start from")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("master")
	cmd.MarkFlagRequired("master-user")
	cmd.MarkFlagRequired("binlog")
	cmd.MarkFlagRequired("binlog-pos")

	return cmd
}

func runSetupReplica(cmd *cobra.Command, args []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	master, _ := cmd.Flags().GetString("master")
	masterPort, _ := cmd.Flags().GetInt("master-port")
	masterUser, _ := cmd.Flags().GetString("master-user")
	masterPassword, _ := cmd.Flags().GetString("master-password")
	binlog, _ := cmd.Flags().GetString("binlog")
	position, _ := cmd.Flags().GetUint64("binlog-pos")

	if masterPort <= 0 || masterPort > 65535 {
		return invalidFlag("master-port", fmt.Sprintf("%d is not a valid port", masterPort))
	}

	if masterPassword == "" {
		var err error
		masterPassword, err = promptPassword(cmd.ErrOrStderr(), masterUser, master)
		if err != nil {
			return err
		}
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

	bootstrapper, err := a.Bootstrapper(cmd.Context(), dest)
	if err != nil {
		return err
	}

	info := replication.MasterInfo{
		Host:        master,
		Port:        masterPort,
		User:        masterUser,
		Password:    masterPassword,
		Coordinates: snapshot.Coordinates{File: binlog, Position: position},
	}
	result := bootstrapper.Bootstrap(cmd.Context(), info)

	item := output.BootstrapItem{
		Replica:     net.JoinHostPort(dest, strconv.Itoa(a.Config().MySQL.Port)),
		Master:      net.JoinHostPort(master, strconv.Itoa(masterPort)),
		Coordinates: info.Coordinates,
		Started:     result.Started,
	}
	if result.Err != nil {
		item.Error = result.Err.Error()
	}
	if err := formatter.FormatBootstrap(item, a.Out()); err != nil {
		return err
	}

	if !result.Started {
		return kerrors.WorkflowError(dest, "replication not started", result.Err).
			WithVerify(fmt.Sprintf("mysql -h %s -e 'SHOW SLAVE STATUS\\G'", dest))
	}
	return nil
}

// promptPassword reads the replication password from the terminal
func promptPassword(w io.Writer, user, host string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprintf(w, "Replication password for %s@%s: ", user, host)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", kerrors.ConfigurationError("cannot read replication password").WithCause(err.Error())
	}
	return strings.TrimRight(string(password), "\r\n"), nil
}

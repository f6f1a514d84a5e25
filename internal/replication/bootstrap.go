package replication

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/snapshot"
)

// MasterInfo is everything a replica needs to follow its source
type MasterInfo struct {
	Host        string
	Port        int
	User        string
	Password    string
	Coordinates snapshot.Coordinates
}

// Result reports the outcome of a bootstrap. Started is false whenever any
// statement failed; Err then holds the database error for display only.
type Result struct {
	Started bool  `json:"started" yaml:"started"`
	Err     error `json:"-" yaml:"-"`
}

// Bootstrapper issues replication statements on the replica
type Bootstrapper struct {
	db  *sql.DB
	log logger.Logger
}

// NewBootstrapper creates a Bootstrapper over db
func NewBootstrapper(db *sql.DB, log logger.Logger) *Bootstrapper {
	return &Bootstrapper{db: db, log: log}
}

// ChangeMasterStatement renders the CHANGE MASTER TO statement for info
func ChangeMasterStatement(info MasterInfo) string {
	return fmt.Sprintf(
		"CHANGE MASTER TO MASTER_HOST=%s, MASTER_USER=%s, MASTER_PORT=%d, MASTER_PASSWORD=%s, MASTER_LOG_FILE=%s, MASTER_LOG_POS=%d",
		quoteLiteral(info.Host),
		quoteLiteral(info.User),
		info.Port,
		quoteLiteral(info.Password),
		quoteLiteral(info.Coordinates.File),
		info.Coordinates.Position,
	)
}

// Bootstrap points the replica at info and starts replication. It never
// returns an error: failures are logged and reported through Result.
func (b *Bootstrapper) Bootstrap(ctx context.Context, info MasterInfo) Result {
	log := b.log.WithFields(map[string]interface{}{
		"master":      fmt.Sprintf("%s:%d", info.Host, info.Port),
		"coordinates": info.Coordinates.String(),
	})

	if err := b.run(ctx, info); err != nil {
		log.WithField("error", err.Error()).Debug("replication bootstrap failed")
		return Result{Started: false, Err: err}
	}

	log.Info("replication started")
	return Result{Started: true}
}

func (b *Bootstrapper) run(ctx context.Context, info MasterInfo) error {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// CHANGE MASTER takes no placeholders
	if _, err := conn.ExecContext(ctx, ChangeMasterStatement(info)); err != nil {
		return fmt.Errorf("change master: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "START SLAVE"); err != nil {
		return fmt.Errorf("start slave: %w", err)
	}
	return nil
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// quoteLiteral renders s as a single-quoted MySQL string literal
func quoteLiteral(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// Package replication points a freshly prepared MySQL server at its source.
package replication

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
)

// AdminConfig describes the administrative connection to the replica
type AdminConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
}

// DSN renders cfg as a go-sql-driver data source name
func (cfg AdminConfig) DSN() string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	return c.FormatDSN()
}

// Open connects to the replica and verifies the connection
func Open(ctx context.Context, cfg AdminConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrorTypeConfiguration, err, "invalid mysql connection settings")
	}

	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, kerrors.TransportError(cfg.Host, fmt.Errorf("mysql at port %d: %w", cfg.Port, err)).
			WithSolutions(
				"Check that mysqld is running on "+cfg.Host,
				"Check mysql.user and mysql.password in your kaksonen config",
			)
	}
	return db, nil
}

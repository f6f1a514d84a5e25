// Package app wires configuration, transports and workflow components
// together for the command line.
package app

import (
	"context"
	"database/sql"
	"io"
	"sync"

	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/mycnf"
	"github.com/yairfalse/kaksonen/internal/output"
	"github.com/yairfalse/kaksonen/internal/remote"
	"github.com/yairfalse/kaksonen/internal/replication"
	"github.com/yairfalse/kaksonen/internal/snapshot"
	"github.com/yairfalse/kaksonen/pkg/config"
)

// Options carries command line state that overrides configuration
type Options struct {
	Debug bool
}

// App owns the loaded configuration and every connection opened for a
// command. Close releases them.
type App struct {
	config *config.Config
	logger logger.Logger
	out    io.Writer

	logFile io.Closer

	mu      sync.RWMutex
	clients map[string]*remote.SSHClient
	dbs     []*sql.DB
}

// Config returns the loaded configuration
func (a *App) Config() *config.Config { return a.config }

// Logger returns the application logger
func (a *App) Logger() logger.Logger { return a.logger }

// Out is where command results are written
func (a *App) Out() io.Writer { return a.out }

// Executor returns the SSH executor for host. One connection per host is
// dialed lazily and shared until Close.
func (a *App) Executor(host string) remote.Executor {
	a.mu.RLock()
	if client, ok := a.clients[host]; ok {
		a.mu.RUnlock()
		return client
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if client, ok := a.clients[host]; ok {
		return client
	}

	client := remote.NewSSHClient(remote.SSHConfig{
		Host:       host,
		Port:       a.config.SSH.Port,
		User:       a.config.SSH.User,
		KeyFile:    a.config.SSH.Key,
		KnownHosts: a.config.SSH.KnownHosts,
		Timeout:    a.config.SSH.Timeout,
		SudoWrites: a.config.SSH.SudoWrites,
	}, a.logger)

	if a.clients == nil {
		a.clients = make(map[string]*remote.SSHClient)
	}
	a.clients[host] = client
	return client
}

// Streamer returns a clone streamer running on exec
func (a *App) Streamer(exec remote.Executor) *snapshot.Streamer {
	return snapshot.NewStreamer(exec, snapshot.StreamerConfig{
		Binary:          a.config.Xtrabackup.Binary,
		CompressCommand: a.config.Xtrabackup.CompressCommand,
		Sender:          a.config.Xtrabackup.Sender,
		ErrorLogDir:     a.config.Xtrabackup.ErrorLogDir,
		DefaultsFile:    a.config.MySQL.DefaultsFile,
	}, a.logger)
}

// Finalizer returns a snapshot finalizer running on exec
func (a *App) Finalizer(exec remote.Executor) *snapshot.Finalizer {
	return snapshot.NewFinalizer(exec, snapshot.FinalizerConfig{
		Binary:         a.config.Xtrabackup.Binary,
		ApplyLog:       a.config.Xtrabackup.ApplyLog,
		ServiceAccount: a.config.MySQL.ServiceAccount,
	}, a.logger)
}

// Tree returns an option file tree reader for exec
func (a *App) Tree(exec remote.Executor) *mycnf.Tree {
	return mycnf.NewTree(exec, a.logger)
}

// Replicator returns a configuration replicator using the system resolver
func (a *App) Replicator() *mycnf.Replicator {
	return mycnf.NewReplicator(nil, a.logger)
}

// Bootstrapper connects to the MySQL server on host
func (a *App) Bootstrapper(ctx context.Context, host string) (*replication.Bootstrapper, error) {
	db, err := replication.Open(ctx, replication.AdminConfig{
		Host:     host,
		Port:     a.config.MySQL.Port,
		User:     a.config.MySQL.User,
		Password: a.config.MySQL.Password,
		Timeout:  a.config.SSH.Timeout,
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.dbs = append(a.dbs, db)
	a.mu.Unlock()
	return replication.NewBootstrapper(db, a.logger), nil
}

// Formatter returns the result formatter selected by output.format
func (a *App) Formatter() (output.Formatter, error) {
	return output.NewFormatter(output.Config{
		Format:  output.OutputFormat(a.config.Output.Format),
		NoColor: a.config.Output.NoColor,
		Pretty:  true,
	})
}

// Close releases every connection opened through the app
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, client := range a.clients {
		if err := client.Close(); err != nil {
			a.logger.WithField("host", client.Host()).Error("failed to close ssh connection", err)
		}
	}
	a.clients = nil

	for _, db := range a.dbs {
		if err := db.Close(); err != nil {
			a.logger.Error("failed to close mysql connection", err)
		}
	}
	a.dbs = nil

	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return nil
}

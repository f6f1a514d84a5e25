// Package snapshot streams a physical backup of a running MySQL server to
// another host and prepares the received copy for use as a replica.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/remote"
)

// StreamerConfig names the tools of the clone pipeline
type StreamerConfig struct {
	// Binary is the xtrabackup executable on the source host
	Binary string
	// CompressCommand is inserted between capture and send when compressing
	CompressCommand string
	// Sender streams stdin to "<host> <port>"
	Sender string
	// ErrorLogDir holds the per-endpoint capture error logs
	ErrorLogDir string
	// DefaultsFile is a local client option file copied to the source host
	// for the duration of the capture. Ignored when it does not exist.
	DefaultsFile string
}

// Pipeline is the shell pipeline run on the source host
type Pipeline struct {
	Stages       []string
	DefaultsFile string
	ErrorLog     string
}

// Command wraps the pipeline so that a failing stage fails the whole command
func (p Pipeline) Command() string {
	return "bash -c " + remote.Quote("set -o pipefail; sudo "+strings.Join(p.Stages, "|"))
}

// Streamer runs the clone pipeline on a source host
type Streamer struct {
	exec remote.Executor
	cfg  StreamerConfig
	log  logger.Logger
}

// NewStreamer creates a Streamer executing on the source host exec
func NewStreamer(exec remote.Executor, cfg StreamerConfig, log logger.Logger) *Streamer {
	if cfg.ErrorLogDir == "" {
		cfg.ErrorLogDir = "/tmp"
	}
	return &Streamer{
		exec: exec,
		cfg:  cfg,
		log:  log.WithField("host", exec.Host()),
	}
}

// ErrorLogPath returns the capture error log for one source/destination
// pair. Repeated clones between the same endpoints overwrite it.
func (s *Streamer) ErrorLogPath(destHost string, destPort int) string {
	name := fmt.Sprintf("%s_%d-%s_%d-error.log", s.exec.Host(), s.exec.Port(), destHost, destPort)
	return path.Join(s.cfg.ErrorLogDir, name)
}

// BuildPipeline composes capture, optional compression and send stages
func (s *Streamer) BuildPipeline(remoteDefaults, destHost string, destPort int, compress bool) Pipeline {
	errorLog := s.ErrorLogPath(destHost, destPort)

	capture := []string{s.cfg.Binary}
	if remoteDefaults != "" {
		capture = append(capture, "--defaults-file="+remote.Quote(remoteDefaults))
	}
	capture = append(capture,
		"--stream=xbstream",
		"--host=127.0.0.1",
		"--backup",
		"--target-dir", "./",
	)

	stages := []string{strings.Join(capture, " ") + " 2> " + remote.Quote(errorLog)}
	if compress {
		stages = append(stages, s.cfg.CompressCommand)
	}
	stages = append(stages, fmt.Sprintf("%s %s %d --send-only", s.cfg.Sender, remote.Quote(destHost), destPort))

	return Pipeline{
		Stages:       stages,
		DefaultsFile: remoteDefaults,
		ErrorLog:     errorLog,
	}
}

// Clone streams a backup of the source server to destHost:destPort, where a
// receiver must already be listening. The capture error log is left on the
// source host; the transient defaults file is always removed.
func (s *Streamer) Clone(ctx context.Context, destHost string, destPort int, compress bool) (remote.Result, error) {
	var result remote.Result

	err := s.withDefaultsFile(ctx, func(remoteDefaults string) error {
		pipeline := s.BuildPipeline(remoteDefaults, destHost, destPort, compress)
		log := s.log.WithFields(map[string]interface{}{
			"destination": fmt.Sprintf("%s:%d", destHost, destPort),
			"compress":    compress,
			"error_log":   pipeline.ErrorLog,
		})
		log.Info("streaming backup")

		var err error
		result, err = s.exec.Execute(ctx, pipeline.Command())
		if err != nil {
			werr := kerrors.WorkflowError(s.exec.Host(), "clone pipeline failed", err).
				WithSolutions(
					fmt.Sprintf("Check that a receiver listens on %s:%d", destHost, destPort),
					"Inspect "+pipeline.ErrorLog+" on "+s.exec.Host(),
				)
			if detail := s.readLog(ctx, pipeline.ErrorLog); detail != "" {
				werr.WithDetail(detail)
			}
			return werr
		}

		log.Info("backup streamed")
		return nil
	})

	return result, err
}

// withDefaultsFile copies the local defaults file to a fresh remote temp
// file, runs fn with its path and removes it afterwards. fn receives ""
// when there is no local defaults file.
func (s *Streamer) withDefaultsFile(ctx context.Context, fn func(remoteDefaults string) error) error {
	if s.cfg.DefaultsFile == "" {
		return fn("")
	}

	content, err := os.ReadFile(s.cfg.DefaultsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return fn("")
	}
	if err != nil {
		return kerrors.WorkflowError(s.exec.Host(), "cannot read local defaults file", err)
	}

	out, err := s.exec.Execute(ctx, "mktemp")
	if err != nil {
		return kerrors.WorkflowError(s.exec.Host(), "cannot create remote defaults file", err)
	}
	remoteDefaults := strings.TrimSpace(out.Stdout)
	if remoteDefaults == "" {
		return kerrors.WorkflowError(s.exec.Host(), "cannot create remote defaults file", nil).
			WithCause("mktemp printed no path")
	}

	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if _, err := s.exec.Execute(cleanupCtx, "rm -f "+remote.Quote(remoteDefaults)); err != nil {
			s.log.WithField("path", remoteDefaults).Error("failed to remove remote defaults file", err)
		}
	}()

	s.log.WithFields(map[string]interface{}{
		"local":  s.cfg.DefaultsFile,
		"remote": remoteDefaults,
	}).Debug("copying defaults file")

	if err := s.exec.WriteContent(ctx, remoteDefaults, string(content)); err != nil {
		return kerrors.WorkflowError(s.exec.Host(), "cannot write remote defaults file", err)
	}

	return fn(remoteDefaults)
}

// readLog returns the content of a remote log, or "" when it cannot be read
func (s *Streamer) readLog(ctx context.Context, logPath string) string {
	content, err := s.exec.TextContent(context.WithoutCancel(ctx), logPath)
	if err != nil {
		s.log.WithField("path", logPath).Debug("capture error log not readable")
		return ""
	}
	return content
}

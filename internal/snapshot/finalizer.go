package snapshot

import (
	"context"
	"fmt"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/remote"
)

// FinalizerConfig names the replay tool and where it logs
type FinalizerConfig struct {
	Binary         string
	ApplyLog       string
	ServiceAccount string
}

// Finalizer prepares a received snapshot on the destination host
type Finalizer struct {
	exec remote.Executor
	cfg  FinalizerConfig
	log  logger.Logger
}

// NewFinalizer creates a Finalizer executing on the destination host exec
func NewFinalizer(exec remote.Executor, cfg FinalizerConfig, log logger.Logger) *Finalizer {
	if cfg.ApplyLog == "" {
		cfg.ApplyLog = "/tmp/xtrabackup-apply-log.log"
	}
	if cfg.ServiceAccount == "" {
		cfg.ServiceAccount = "mysql"
	}
	return &Finalizer{
		exec: exec,
		cfg:  cfg,
		log:  log.WithField("host", exec.Host()),
	}
}

// ApplyCommand builds the log-replay command. memoryBound of zero omits
// the --use-memory flag.
func (f *Finalizer) ApplyCommand(targetDir string, memoryBound uint64) string {
	useMemory := ""
	if memoryBound > 0 {
		useMemory = fmt.Sprintf(" --use-memory %d", memoryBound)
	}
	return fmt.Sprintf("sudo %s --prepare --apply-log-only --target-dir %s%s > %s 2>&1",
		f.cfg.Binary, remote.Quote(targetDir), useMemory, remote.Quote(f.cfg.ApplyLog))
}

// memoryBound returns half of the available memory, or 0 when the host
// cannot report it
func (f *Finalizer) memoryBound(ctx context.Context) (uint64, error) {
	available, err := MemAvailable(ctx, f.exec)
	if err != nil {
		if kerrors.IsType(err, kerrors.ErrorTypeResourceUnavailable) {
			f.log.WithField("reason", err.Error()).Debug("running log replay without a memory bound")
			return 0, nil
		}
		return 0, err
	}
	return available / 2, nil
}

// Apply replays the redo log of the snapshot in targetDir, hands the
// directory to the service account and returns the binary log coordinates
// the snapshot is consistent with.
func (f *Finalizer) Apply(ctx context.Context, targetDir string) (Coordinates, error) {
	bound, err := f.memoryBound(ctx)
	if err != nil {
		return Coordinates{}, kerrors.WorkflowError(f.exec.Host(), "cannot size log replay", err)
	}

	log := f.log.WithFields(map[string]interface{}{
		"target_dir": targetDir,
		"use_memory": bound,
	})
	log.Info("applying redo log")

	if err := f.replay(ctx, targetDir, bound); err != nil {
		f.log.Debug("###### Logfile BEGIN.")
		detail := f.applyLog(ctx)
		f.log.Debug(detail)
		f.log.Debug("###### Logfile END.")

		return Coordinates{}, kerrors.WorkflowError(f.exec.Host(), "log replay failed", err).
			WithDetail(detail).
			WithSolutions(
				"Check free disk space in "+targetDir,
				"Inspect "+f.cfg.ApplyLog+" on "+f.exec.Host(),
			)
	}

	coordinates, err := ReadCoordinates(ctx, f.exec, targetDir)
	if err != nil {
		return Coordinates{}, kerrors.WorkflowError(f.exec.Host(), "cannot read binlog coordinates", err).
			WithVerify(fmt.Sprintf("sudo cat %s/%s", targetDir, BinlogInfoFile))
	}

	log.WithField("coordinates", coordinates.String()).Info("snapshot prepared")
	return coordinates, nil
}

func (f *Finalizer) replay(ctx context.Context, targetDir string, bound uint64) error {
	if _, err := f.exec.Execute(ctx, f.ApplyCommand(targetDir, bound)); err != nil {
		return err
	}
	chown := fmt.Sprintf("sudo chown -R %s %s", remote.Quote(f.cfg.ServiceAccount), remote.Quote(targetDir))
	if _, err := f.exec.Execute(ctx, chown); err != nil {
		return err
	}
	return nil
}

// applyLog returns the replay log content, or "" when it cannot be read
func (f *Finalizer) applyLog(ctx context.Context) string {
	content, err := f.exec.TextContent(context.WithoutCancel(ctx), f.cfg.ApplyLog)
	if err != nil {
		f.log.WithField("path", f.cfg.ApplyLog).Debug("log replay output not readable")
		return ""
	}
	return content
}
